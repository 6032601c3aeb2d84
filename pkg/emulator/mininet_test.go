package emulator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMininetDriverCreateTopology(t *testing.T) {
	var commands []string
	driver := NewMininetDriver(MininetConfig{ControllerAddr: "tcp:opendaylight:6633"})
	driver.run = func(command string) (string, error) {
		commands = append(commands, command)
		return "", nil
	}

	require.NoError(t, driver.CreateTopology(testTopology(t)))

	joined := strings.Join(commands, "\n")
	require.Contains(t, joined, "ovs-vsctl --may-exist add-br s1")
	require.Contains(t, joined, "ovs-vsctl set-controller s2 tcp:opendaylight:6633")
	require.Contains(t, joined, "ip netns add h1")
	require.Contains(t, joined, "ip link add s1-s2-a type veth peer name s1-s2-b")
	require.Contains(t, joined, "ip netns exec h1 ip addr add 10.0.0.1/24 dev h1-s1-a")
	// shaping lands on the switch side interfaces only
	require.Contains(t, joined, "tc qdisc add dev s1-s2-a root netem delay 5ms rate 5mbit")
}

func TestMininetDriverSetLink(t *testing.T) {
	var commands []string
	driver := NewMininetDriver(MininetConfig{})
	driver.run = func(command string) (string, error) {
		commands = append(commands, command)
		return "", nil
	}
	require.NoError(t, driver.CreateTopology(testTopology(t)))
	commands = nil

	link, _ := driver.topo.Link("s1-s2")
	require.NoError(t, driver.SetLink(link, false))

	require.Equal(t, []string{
		"ip link set s1-s2-a down",
		"ip link set s1-s2-b down",
	}, commands)
}

func TestMininetDriverStartTraffic(t *testing.T) {
	var commands []string
	driver := NewMininetDriver(MininetConfig{StatsDir: "/var/tmp"})
	driver.run = func(command string) (string, error) {
		commands = append(commands, command)
		return "", nil
	}
	require.NoError(t, driver.CreateTopology(testTopology(t)))
	commands = nil

	stream := StreamSpec{ID: "stream-h1-h2-abc123", Src: "h1", Dst: "h2", RateMbps: 2, DurationSec: 30}
	require.NoError(t, driver.StartTraffic(driver.topo, stream))

	require.Len(t, commands, 2)
	require.Contains(t, commands[0], "ip netns exec h2")
	require.Contains(t, commands[0], "iperf -s -u -p 5001")
	require.Contains(t, commands[1], "ip netns exec h1")
	require.Contains(t, commands[1], "iperf -u -c 10.0.0.2 -p 5001 -b 2M -t 30 -i 1 -y C")
	require.Contains(t, commands[1], "/var/tmp/harness-stream-h1-h2-abc123.csv")
}

func TestNetemArgs(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"Core link has delay and rate", "s1-s2", "delay 5ms rate 5mbit"},
		{"Access link has rate only", "h1-s1", "rate 10mbit"},
	}
	topo := testTopology(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, ok := topo.Link(tt.link)
			require.True(t, ok)
			require.Equal(t, tt.want, netemArgs(link))
		})
	}
}
