package emulator

import (
	"fmt"
	"time"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/topology"
	"github.com/sdnlab/harness-go/pkg/utils/stringutils"
)

// LinkState is the only mutable field of an instantiated topology: the
// operational flag plus the moment it last changed
type LinkState struct {
	Up             bool
	LastTransition time.Time
}

// IntervalSample is one traffic sample window of a stream
type IntervalSample struct {
	Start   time.Time
	End     time.Time
	Bytes   int64
	LossPct float64
}

// TrafficStats carries the figures of one background traffic stream
type TrafficStats struct {
	StreamID      string
	SentBytes     int64
	ReceivedBytes int64
	LossPct       float64
	Samples       []IntervalSample
}

// StreamSpec identifies a background traffic stream started on the emulator
type StreamSpec struct {
	ID          string
	Src         string
	Dst         string
	RateMbps    float64
	DurationSec int
	StartedAt   time.Time
}

// Driver is the backing emulator implementation. The exec-based driver talks
// to a Mininet/OVS host, the fake driver backs tests and dry runs.
type Driver interface {
	CreateTopology(topo *topology.Topology) error
	SetLink(link topology.Link, up bool) error
	StartTraffic(topo *topology.Topology, stream StreamSpec) error
	FetchStats(stream StreamSpec) (*TrafficStats, error)
	Destroy() error
}

// Handle is the opaque, shared emulator session. It owns the per-link
// operational state and the set of retained traffic streams. A run holds
// exactly one Handle; only the orchestrator mutates link state through it.
type Handle struct {
	topo    *topology.Topology
	driver  Driver
	states  map[string]*LinkState
	streams map[string]StreamSpec
}

// Instantiate creates the topology inside the backing emulator and returns
// the handle used by all subsequent calls. Every link starts up.
func Instantiate(topo *topology.Topology, driver Driver) (*Handle, error) {
	if err := driver.CreateTopology(topo); err != nil {
		return nil, cerrors.EmulatorUnavailable{Operation: "instantiate", Reason: err.Error()}
	}

	now := time.Now()
	states := map[string]*LinkState{}
	for _, link := range topo.Links() {
		states[link.ID] = &LinkState{Up: true, LastTransition: now}
	}

	return &Handle{
		topo:    topo,
		driver:  driver,
		states:  states,
		streams: map[string]StreamSpec{},
	}, nil
}

// Topology returns the immutable model behind this handle
func (h *Handle) Topology() *topology.Topology {
	return h.topo
}

// SetLinkState applies or removes a link's connectivity. Setting a link to
// the state it is already in is a no-op, not an error.
func (h *Handle) SetLinkState(linkID string, up bool) error {
	state, ok := h.states[linkID]
	if !ok {
		return cerrors.Generic{Phase: "SetLinkState", Reason: fmt.Sprintf("unknown link '%s'", linkID)}
	}
	if state.Up == up {
		log.Infof("[Emulator]: Link %s already %s, nothing to do", linkID, upDown(up))
		return nil
	}

	link, _ := h.topo.Link(linkID)
	if err := h.driver.SetLink(link, up); err != nil {
		return cerrors.EmulatorUnavailable{Operation: "set-link", Target: linkID, Reason: err.Error()}
	}

	state.Up = up
	state.LastTransition = time.Now()
	log.Infof("[Emulator]: Link %s is now %s", linkID, upDown(up))
	return nil
}

// LinkState reads the current operational state of one link
func (h *Handle) LinkState(linkID string) (LinkState, bool) {
	state, ok := h.states[linkID]
	if !ok {
		return LinkState{}, false
	}
	return *state, true
}

// LinkStates returns a copy of the operational state of every link
func (h *Handle) LinkStates() map[string]LinkState {
	out := map[string]LinkState{}
	for id, state := range h.states {
		out[id] = *state
	}
	return out
}

// GenerateTraffic starts a background traffic flow between two hosts. It
// returns immediately with a stream id; statistics are retrieved later via
// CollectStats.
func (h *Handle) GenerateTraffic(src, dst string, rateMbps float64, durationSec int) (string, error) {
	if _, ok := h.topo.Host(src); !ok {
		return "", cerrors.Generic{Phase: "GenerateTraffic", Reason: fmt.Sprintf("unknown source host '%s'", src)}
	}
	if _, ok := h.topo.Host(dst); !ok {
		return "", cerrors.Generic{Phase: "GenerateTraffic", Reason: fmt.Sprintf("unknown destination host '%s'", dst)}
	}

	stream := StreamSpec{
		ID:          fmt.Sprintf("stream-%s-%s-%s", src, dst, stringutils.GetRunID()),
		Src:         src,
		Dst:         dst,
		RateMbps:    rateMbps,
		DurationSec: durationSec,
		StartedAt:   time.Now(),
	}
	if err := h.driver.StartTraffic(h.topo, stream); err != nil {
		return "", cerrors.EmulatorUnavailable{Operation: "generate-traffic", Target: stream.ID, Reason: err.Error()}
	}

	h.streams[stream.ID] = stream
	log.Infof("[Emulator]: Started traffic stream %s at %v Mbps for %vs", stream.ID, rateMbps, durationSec)
	return stream.ID, nil
}

// CollectStats retrieves the statistics of a previously started stream
func (h *Handle) CollectStats(streamID string) (*TrafficStats, error) {
	stream, ok := h.streams[streamID]
	if !ok {
		return nil, cerrors.StreamNotFound{StreamID: streamID}
	}
	stats, err := h.driver.FetchStats(stream)
	if err != nil {
		if cerrors.GetErrorType(err) == cerrors.ErrorTypeStreamNotFound {
			return nil, err
		}
		return nil, cerrors.EmulatorUnavailable{Operation: "collect-stats", Target: streamID, Reason: err.Error()}
	}
	return stats, nil
}

// Streams returns the specs of all retained traffic streams
func (h *Handle) Streams() []StreamSpec {
	out := make([]StreamSpec, 0, len(h.streams))
	for _, s := range h.streams {
		out = append(out, s)
	}
	return out
}

// Teardown removes the emulated topology, best effort
func (h *Handle) Teardown() error {
	if err := h.driver.Destroy(); err != nil {
		return cerrors.EmulatorUnavailable{Operation: "teardown", Reason: err.Error()}
	}
	return nil
}

func upDown(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
