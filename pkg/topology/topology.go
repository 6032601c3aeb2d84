package topology

import (
	"fmt"

	"github.com/sdnlab/harness-go/pkg/cerrors"
)

// Switch is one virtual switch of the experiment topology. NodeID is the
// identifier the controller knows the switch by (e.g. "openflow:1"); it
// defaults to the switch id when unset.
type Switch struct {
	ID     string `yaml:"id" json:"id"`
	NodeID string `yaml:"node-id,omitempty" json:"nodeId,omitempty"`
}

// Host is one emulated end host, attached to exactly one switch
type Host struct {
	ID     string `yaml:"id" json:"id"`
	Switch string `yaml:"switch" json:"switch"`
	IP     string `yaml:"ip,omitempty" json:"ip,omitempty"`
}

// LinkSpec is one edge of the topology spec. Parallel links between the same
// unordered endpoint pair must carry distinct explicit IDs.
type LinkSpec struct {
	ID            string  `yaml:"id,omitempty" json:"id,omitempty"`
	A             string  `yaml:"a" json:"a"`
	B             string  `yaml:"b" json:"b"`
	BandwidthMbps float64 `yaml:"bandwidth-mbps" json:"bandwidthMbps"`
	LatencyMs     float64 `yaml:"latency-ms" json:"latencyMs"`
	LossPct       float64 `yaml:"loss-pct" json:"lossPct"`
}

// Spec is the declarative topology description read from the run configuration
type Spec struct {
	Switches []Switch   `yaml:"switches" json:"switches"`
	Hosts    []Host     `yaml:"hosts" json:"hosts"`
	Links    []LinkSpec `yaml:"links" json:"links"`
}

// Link is a validated edge with a guaranteed unique id
type Link struct {
	ID            string
	A             string
	B             string
	BandwidthMbps float64
	LatencyMs     float64
	LossPct       float64
}

// Topology is the validated, immutable in-memory model. Per-link operational
// state lives on the emulator handle, not here.
type Topology struct {
	switches []Switch
	hosts    []Host
	links    []Link

	switchIndex map[string]Switch
	hostIndex   map[string]Host
	linkIndex   map[string]Link
	adjacency   map[string][]Link
}

// Build validates the spec and constructs the topology. It verifies that all
// node ids are unique, every link endpoint exists, parallel edges carry
// distinct ids, and the graph is connected so every host can reach every
// other host at time zero.
func Build(spec Spec) (*Topology, error) {
	topo := &Topology{
		switches:    spec.Switches,
		hosts:       spec.Hosts,
		switchIndex: map[string]Switch{},
		hostIndex:   map[string]Host{},
		linkIndex:   map[string]Link{},
		adjacency:   map[string][]Link{},
	}

	for _, sw := range spec.Switches {
		if sw.ID == "" {
			return nil, cerrors.InvalidTopology{Reason: "switch with empty id"}
		}
		if _, ok := topo.switchIndex[sw.ID]; ok {
			return nil, cerrors.InvalidTopology{Target: sw.ID, Reason: "duplicate switch id"}
		}
		topo.switchIndex[sw.ID] = sw
	}

	for _, h := range spec.Hosts {
		if h.ID == "" {
			return nil, cerrors.InvalidTopology{Reason: "host with empty id"}
		}
		if _, ok := topo.hostIndex[h.ID]; ok {
			return nil, cerrors.InvalidTopology{Target: h.ID, Reason: "duplicate host id"}
		}
		if _, ok := topo.switchIndex[h.ID]; ok {
			return nil, cerrors.InvalidTopology{Target: h.ID, Reason: "host id collides with a switch id"}
		}
		if _, ok := topo.switchIndex[h.Switch]; !ok {
			return nil, cerrors.InvalidTopology{Target: h.ID, Reason: fmt.Sprintf("attached switch '%s' does not exist", h.Switch)}
		}
		topo.hostIndex[h.ID] = h
	}

	seenPairs := map[string]string{}
	for _, ls := range spec.Links {
		link := Link{
			ID:            ls.ID,
			A:             ls.A,
			B:             ls.B,
			BandwidthMbps: ls.BandwidthMbps,
			LatencyMs:     ls.LatencyMs,
			LossPct:       ls.LossPct,
		}
		if link.ID == "" {
			link.ID = fmt.Sprintf("%s-%s", ls.A, ls.B)
		}
		for _, end := range []string{ls.A, ls.B} {
			if !topo.nodeExists(end) {
				return nil, cerrors.InvalidTopology{Target: link.ID, Reason: fmt.Sprintf("endpoint '%s' does not exist", end)}
			}
		}
		if ls.A == ls.B {
			return nil, cerrors.InvalidTopology{Target: link.ID, Reason: "link endpoints are the same node"}
		}
		if _, ok := topo.linkIndex[link.ID]; ok {
			return nil, cerrors.InvalidTopology{Target: link.ID, Reason: "duplicate link id"}
		}
		pair := pairKey(ls.A, ls.B)
		if prev, ok := seenPairs[pair]; ok && ls.ID == "" {
			return nil, cerrors.InvalidTopology{Target: link.ID, Reason: fmt.Sprintf("duplicate edge with '%s', parallel links need explicit ids", prev)}
		}
		seenPairs[pair] = link.ID

		topo.linkIndex[link.ID] = link
		topo.links = append(topo.links, link)
		topo.adjacency[link.A] = append(topo.adjacency[link.A], link)
		topo.adjacency[link.B] = append(topo.adjacency[link.B], link)
	}

	if err := topo.checkConnected(); err != nil {
		return nil, err
	}

	return topo, nil
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func (t *Topology) nodeExists(id string) bool {
	if _, ok := t.switchIndex[id]; ok {
		return true
	}
	_, ok := t.hostIndex[id]
	return ok
}

// checkConnected verifies every host reaches every other host through at
// least one path of links, all of which are up at build time
func (t *Topology) checkConnected() error {
	if len(t.hosts) == 0 {
		return nil
	}
	visited := t.reachableFrom(t.hosts[0].ID, "")
	for _, h := range t.hosts {
		if !visited[h.ID] {
			return cerrors.InvalidTopology{Target: h.ID, Reason: "host is unreachable from the rest of the topology"}
		}
	}
	return nil
}

// reachableFrom runs a BFS from the given node; skipLink (when non-empty) is
// treated as absent
func (t *Topology) reachableFrom(start string, skipLink string) map[string]bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, link := range t.adjacency[node] {
			if link.ID == skipLink {
				continue
			}
			next := link.A
			if next == node {
				next = link.B
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// Link returns the validated link with the given id
func (t *Topology) Link(id string) (Link, bool) {
	l, ok := t.linkIndex[id]
	return l, ok
}

// Links returns all validated links in spec order
func (t *Topology) Links() []Link {
	out := make([]Link, len(t.links))
	copy(out, t.links)
	return out
}

// Switches returns all switches in spec order
func (t *Topology) Switches() []Switch {
	out := make([]Switch, len(t.switches))
	copy(out, t.switches)
	return out
}

// Switch returns the switch with the given id
func (t *Topology) Switch(id string) (Switch, bool) {
	sw, ok := t.switchIndex[id]
	return sw, ok
}

// Hosts returns all hosts in spec order
func (t *Topology) Hosts() []Host {
	out := make([]Host, len(t.hosts))
	copy(out, t.hosts)
	return out
}

// Host returns the host with the given id
func (t *Topology) Host(id string) (Host, bool) {
	h, ok := t.hostIndex[id]
	return h, ok
}

// NodeID maps a switch id to the identifier the controller uses for it
func (t *Topology) NodeID(switchID string) string {
	sw, ok := t.switchIndex[switchID]
	if !ok || sw.NodeID == "" {
		return switchID
	}
	return sw.NodeID
}

// ReachableSwitches returns the ids of all switches reachable from either
// endpoint of the given link, the link itself included. This is the scope a
// controller reprograms after the link changes state.
func (t *Topology) ReachableSwitches(linkID string) []string {
	link, ok := t.linkIndex[linkID]
	if !ok {
		return nil
	}
	visited := t.reachableFrom(link.A, "")
	var out []string
	for _, sw := range t.switches {
		if visited[sw.ID] {
			out = append(out, sw.ID)
		}
	}
	return out
}
