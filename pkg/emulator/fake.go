package emulator

import (
	"fmt"
	"time"

	"github.com/sdnlab/harness-go/pkg/topology"
)

// FakeDriver is an in-memory emulator used by tests and dry runs. Traffic
// streams produce synthetic statistics at the requested rate.
type FakeDriver struct {
	topo      *topology.Topology
	linkDown  map[string]bool
	streams   map[string]StreamSpec
	destroyed bool

	// SetLinkCalls records every effective transition for assertions
	SetLinkCalls []string
	// SyntheticLossPct is applied to every synthetic stream
	SyntheticLossPct float64
	// FailSetLink, when set, makes the next SetLink call fail with it
	FailSetLink error
	// FailCreate, when set, makes CreateTopology fail with it
	FailCreate error
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		linkDown: map[string]bool{},
		streams:  map[string]StreamSpec{},
	}
}

func (d *FakeDriver) CreateTopology(topo *topology.Topology) error {
	if d.FailCreate != nil {
		return d.FailCreate
	}
	d.topo = topo
	return nil
}

func (d *FakeDriver) SetLink(link topology.Link, up bool) error {
	if d.FailSetLink != nil {
		err := d.FailSetLink
		d.FailSetLink = nil
		return err
	}
	d.linkDown[link.ID] = !up
	d.SetLinkCalls = append(d.SetLinkCalls, fmt.Sprintf("%s:%s", link.ID, upDown(up)))
	return nil
}

// LinkDown reports whether the fake emulator holds the link down
func (d *FakeDriver) LinkDown(linkID string) bool {
	return d.linkDown[linkID]
}

func (d *FakeDriver) StartTraffic(topo *topology.Topology, stream StreamSpec) error {
	d.streams[stream.ID] = stream
	return nil
}

func (d *FakeDriver) FetchStats(stream StreamSpec) (*TrafficStats, error) {
	spec, ok := d.streams[stream.ID]
	if !ok {
		return nil, fmt.Errorf("no such stream '%s'", stream.ID)
	}

	bytesPerSec := int64(spec.RateMbps * 1e6 / 8)
	stats := &TrafficStats{StreamID: spec.ID}
	for i := 0; i < spec.DurationSec; i++ {
		sample := IntervalSample{
			Start:   spec.StartedAt.Add(time.Duration(i) * time.Second),
			End:     spec.StartedAt.Add(time.Duration(i+1) * time.Second),
			Bytes:   bytesPerSec,
			LossPct: d.SyntheticLossPct,
		}
		stats.Samples = append(stats.Samples, sample)
		stats.SentBytes += bytesPerSec
	}
	stats.LossPct = d.SyntheticLossPct
	stats.ReceivedBytes = int64(float64(stats.SentBytes) * (1 - d.SyntheticLossPct/100))
	return stats, nil
}

func (d *FakeDriver) Destroy() error {
	d.destroyed = true
	return nil
}

// Destroyed reports whether Destroy has been called
func (d *FakeDriver) Destroyed() bool {
	return d.destroyed
}
