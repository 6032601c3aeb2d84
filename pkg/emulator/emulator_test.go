package emulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/topology"
)

func testTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.Build(topology.Spec{
		Switches: []topology.Switch{{ID: "s1"}, {ID: "s2"}},
		Hosts: []topology.Host{
			{ID: "h1", Switch: "s1", IP: "10.0.0.1"},
			{ID: "h2", Switch: "s2", IP: "10.0.0.2"},
		},
		Links: []topology.LinkSpec{
			{A: "h1", B: "s1", BandwidthMbps: 10},
			{A: "h2", B: "s2", BandwidthMbps: 10},
			{A: "s1", B: "s2", BandwidthMbps: 5, LatencyMs: 5},
		},
	})
	require.NoError(t, err)
	return topo
}

func TestInstantiateStartsAllLinksUp(t *testing.T) {
	driver := NewFakeDriver()
	handle, err := Instantiate(testTopology(t), driver)
	require.NoError(t, err)

	for id, state := range handle.LinkStates() {
		require.True(t, state.Up, "link %s should start up", id)
	}
}

func TestSetLinkStateIsIdempotent(t *testing.T) {
	driver := NewFakeDriver()
	handle, err := Instantiate(testTopology(t), driver)
	require.NoError(t, err)

	require.NoError(t, handle.SetLinkState("s1-s2", false))
	state, ok := handle.LinkState("s1-s2")
	require.True(t, ok)
	require.False(t, state.Up)
	firstTransition := state.LastTransition

	// setting an already-down link down again is a no-op, not an error
	require.NoError(t, handle.SetLinkState("s1-s2", false))
	state, _ = handle.LinkState("s1-s2")
	require.False(t, state.Up)
	require.Equal(t, firstTransition, state.LastTransition)
	require.Len(t, driver.SetLinkCalls, 1)

	require.NoError(t, handle.SetLinkState("s1-s2", true))
	state, _ = handle.LinkState("s1-s2")
	require.True(t, state.Up)
}

func TestSetLinkStateUnknownLink(t *testing.T) {
	handle, err := Instantiate(testTopology(t), NewFakeDriver())
	require.NoError(t, err)

	err = handle.SetLinkState("s9-s9", false)
	require.Error(t, err)
}

func TestSetLinkStateDriverFailure(t *testing.T) {
	driver := NewFakeDriver()
	handle, err := Instantiate(testTopology(t), driver)
	require.NoError(t, err)

	driver.FailSetLink = errors.New("ovs is gone")
	err = handle.SetLinkState("s1-s2", false)
	require.Error(t, err)
	require.Equal(t, cerrors.ErrorTypeEmulatorUnavailable, cerrors.GetErrorType(err))

	// the failed transition must not be reflected in the handle state
	state, _ := handle.LinkState("s1-s2")
	require.True(t, state.Up)
}

func TestGenerateTrafficAndCollectStats(t *testing.T) {
	driver := NewFakeDriver()
	handle, err := Instantiate(testTopology(t), driver)
	require.NoError(t, err)

	streamID, err := handle.GenerateTraffic("h1", "h2", 2, 10)
	require.NoError(t, err)
	require.NotEmpty(t, streamID)

	stats, err := handle.CollectStats(streamID)
	require.NoError(t, err)
	require.Greater(t, stats.SentBytes, int64(0))
	require.Equal(t, stats.SentBytes, stats.ReceivedBytes)
	require.Len(t, stats.Samples, 10)
}

func TestCollectStatsUnknownStream(t *testing.T) {
	handle, err := Instantiate(testTopology(t), NewFakeDriver())
	require.NoError(t, err)

	_, err = handle.CollectStats("stream-gone")
	require.Error(t, err)
	require.Equal(t, cerrors.ErrorTypeStreamNotFound, cerrors.GetErrorType(err))
}

func TestGenerateTrafficUnknownHost(t *testing.T) {
	handle, err := Instantiate(testTopology(t), NewFakeDriver())
	require.NoError(t, err)

	_, err = handle.GenerateTraffic("h1", "h9", 2, 10)
	require.Error(t, err)
}
