package emulator

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/topology"
	"github.com/sdnlab/harness-go/pkg/utils/exec"
)

// MininetConfig holds the knobs of the exec-based driver
type MininetConfig struct {
	// ControllerAddr is the OpenFlow listener the switches connect to, e.g. "tcp:opendaylight:6633"
	ControllerAddr string
	// StatsDir is where iperf stream reports are written, defaults to /tmp
	StatsDir string
}

// MininetDriver drives an OVS/netns based emulation host through shell
// commands: ovs-vsctl for switches, ip/netns for hosts and links, tc netem
// for link bandwidth/latency/loss, iperf for background traffic.
type MininetDriver struct {
	cfg  MininetConfig
	run  exec.Runner
	topo *topology.Topology

	ports    map[string]int
	nextPort int
}

func NewMininetDriver(cfg MininetConfig) *MininetDriver {
	if cfg.StatsDir == "" {
		cfg.StatsDir = "/tmp"
	}
	return &MininetDriver{
		cfg:      cfg,
		run:      exec.Shell,
		ports:    map[string]int{},
		nextPort: 5001,
	}
}

func (d *MininetDriver) CreateTopology(topo *topology.Topology) error {
	d.topo = topo

	for _, sw := range topo.Switches() {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ovs-vsctl --may-exist add-br %s", sw.ID)); err != nil {
			return err
		}
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ovs-vsctl set bridge %s protocols=OpenFlow10,OpenFlow13", sw.ID)); err != nil {
			return err
		}
		if d.cfg.ControllerAddr != "" {
			if err := exec.ShellLogged(d.run, fmt.Sprintf("ovs-vsctl set-controller %s %s", sw.ID, d.cfg.ControllerAddr)); err != nil {
				return err
			}
		}
	}

	for _, h := range topo.Hosts() {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ip netns add %s", h.ID)); err != nil {
			return err
		}
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ip netns exec %s ip link set lo up", h.ID)); err != nil {
			return err
		}
	}

	for _, link := range topo.Links() {
		if err := d.createLink(link); err != nil {
			return err
		}
	}

	return nil
}

func (d *MininetDriver) createLink(link topology.Link) error {
	ifA := IfaceName(link.ID, "a")
	ifB := IfaceName(link.ID, "b")

	if err := exec.ShellLogged(d.run, fmt.Sprintf("ip link add %s type veth peer name %s", ifA, ifB)); err != nil {
		return err
	}

	if err := d.attachEndpoint(link, link.A, ifA); err != nil {
		return err
	}
	if err := d.attachEndpoint(link, link.B, ifB); err != nil {
		return err
	}

	return nil
}

func (d *MininetDriver) attachEndpoint(link topology.Link, node, iface string) error {
	if host, ok := d.topo.Host(node); ok {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ip link set %s netns %s", iface, host.ID)); err != nil {
			return err
		}
		if host.IP != "" {
			if err := exec.ShellLogged(d.run, fmt.Sprintf("ip netns exec %s ip addr add %s/24 dev %s", host.ID, host.IP, iface)); err != nil {
				return err
			}
		}
		return exec.ShellLogged(d.run, fmt.Sprintf("ip netns exec %s ip link set %s up", host.ID, iface))
	}

	if err := exec.ShellLogged(d.run, fmt.Sprintf("ovs-vsctl --may-exist add-port %s %s", node, iface)); err != nil {
		return err
	}
	if err := exec.ShellLogged(d.run, fmt.Sprintf("ip link set %s up", iface)); err != nil {
		return err
	}
	if qdisc := netemArgs(link); qdisc != "" {
		return exec.ShellLogged(d.run, fmt.Sprintf("tc qdisc add dev %s root netem %s", iface, qdisc))
	}
	return nil
}

// netemArgs renders the tc netem parameters of a link, empty when the link
// carries no shaping at all
func netemArgs(link topology.Link) string {
	args := ""
	if link.LatencyMs > 0 {
		args += fmt.Sprintf(" delay %gms", link.LatencyMs)
	}
	if link.LossPct > 0 {
		args += fmt.Sprintf(" loss %g%%", link.LossPct)
	}
	if link.BandwidthMbps > 0 {
		args += fmt.Sprintf(" rate %gmbit", link.BandwidthMbps)
	}
	if args == "" {
		return ""
	}
	return args[1:]
}

func (d *MininetDriver) SetLink(link topology.Link, up bool) error {
	action := "down"
	if up {
		action = "up"
	}
	// both ends go down, like pulling the cable
	for _, side := range []struct {
		node  string
		iface string
	}{
		{link.A, IfaceName(link.ID, "a")},
		{link.B, IfaceName(link.ID, "b")},
	} {
		cmd := fmt.Sprintf("ip link set %s %s", side.iface, action)
		if _, ok := d.topo.Host(side.node); ok {
			cmd = fmt.Sprintf("ip netns exec %s %s", side.node, cmd)
		}
		if err := exec.ShellLogged(d.run, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *MininetDriver) StartTraffic(topo *topology.Topology, stream StreamSpec) error {
	dst, ok := topo.Host(stream.Dst)
	if !ok || dst.IP == "" {
		return errors.Errorf("destination host '%s' has no address", stream.Dst)
	}

	port := d.nextPort
	d.nextPort++
	d.ports[stream.ID] = port

	server := fmt.Sprintf("ip netns exec %s sh -c 'iperf -s -u -p %d > %s 2>&1 &'",
		stream.Dst, port, d.serverLogPath(stream))
	if err := exec.ShellLogged(d.run, server); err != nil {
		return err
	}

	client := fmt.Sprintf("ip netns exec %s sh -c 'iperf -u -c %s -p %d -b %gM -t %d -i 1 -y C > %s 2>&1 &'",
		stream.Src, dst.IP, port, stream.RateMbps, stream.DurationSec, d.statsPath(stream))
	return exec.ShellLogged(d.run, client)
}

func (d *MininetDriver) FetchStats(stream StreamSpec) (*TrafficStats, error) {
	data, err := os.ReadFile(d.statsPath(stream))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerrors.StreamNotFound{StreamID: stream.ID}
		}
		return nil, errors.Errorf("unable to read stats of stream '%s', err: %v", stream.ID, err)
	}
	stats, err := parseIperfCSV(stream, data)
	if err != nil {
		return nil, err
	}
	if stats.SentBytes == 0 && len(stats.Samples) == 0 {
		// iperf wrote nothing usable, the stream was not retained
		return nil, cerrors.StreamNotFound{StreamID: stream.ID}
	}
	return stats, nil
}

func (d *MininetDriver) Destroy() error {
	if d.topo == nil {
		return nil
	}
	for id, port := range d.ports {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("pkill -f 'iperf -s -u -p %d' || true", port)); err != nil {
			log.Warnf("Unable to stop iperf server of stream %s, err: %v", id, err)
		}
	}
	for _, link := range d.topo.Links() {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ip link del %s 2>/dev/null || true", IfaceName(link.ID, "a"))); err != nil {
			log.Warnf("Unable to delete link %s, err: %v", link.ID, err)
		}
	}
	for _, h := range d.topo.Hosts() {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ip netns del %s", h.ID)); err != nil {
			log.Warnf("Unable to delete host %s, err: %v", h.ID, err)
		}
	}
	for _, sw := range d.topo.Switches() {
		if err := exec.ShellLogged(d.run, fmt.Sprintf("ovs-vsctl --if-exists del-br %s", sw.ID)); err != nil {
			log.Warnf("Unable to delete switch %s, err: %v", sw.ID, err)
		}
	}
	return nil
}

func (d *MininetDriver) statsPath(stream StreamSpec) string {
	return filepath.Join(d.cfg.StatsDir, fmt.Sprintf("harness-%s.csv", stream.ID))
}

func (d *MininetDriver) serverLogPath(stream StreamSpec) string {
	return filepath.Join(d.cfg.StatsDir, fmt.Sprintf("harness-%s-srv.log", stream.ID))
}

// IfaceName derives a veth interface name for one side of a link, kept within
// the kernel's 15 character limit
func IfaceName(linkID, side string) string {
	name := fmt.Sprintf("%s-%s", linkID, side)
	if len(name) <= 15 {
		return name
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("ln%08x-%s", h.Sum32(), side)
}
