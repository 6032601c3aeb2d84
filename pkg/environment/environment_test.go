package environment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnlab/harness-go/pkg/types"
)

const labYAML = `
topology:
  switches:
    - id: s1
      node-id: openflow:1
    - id: s2
      node-id: openflow:2
  hosts:
    - id: h1
      switch: s1
      ip: 10.0.0.1
  links:
    - a: h1
      b: s1
      bandwidth-mbps: 10
    - a: s1
      b: s2
      bandwidth-mbps: 5
      latency-ms: 5
scenarios:
  - name: primary-path-failure
    traffic:
      - src: h1
        dst: h2
        rate-mbps: 4
        duration-sec: 60
    schedule:
      - at: 10
        link: s1-s2
        action: FAIL
        monitor: true
    tail-sec: 5
controller:
  base-url: http://controller:8181
  username: admin
  password: admin
confirm-count: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, labYAML))
	require.NoError(t, err)

	assert.Len(t, config.Topology.Switches, 2)
	assert.Len(t, config.Topology.Links, 2)
	require.Len(t, config.Scenarios, 1)

	scenario := config.Scenarios[0]
	assert.Equal(t, "primary-path-failure", scenario.Name)
	require.Len(t, scenario.Schedule, 1)
	assert.Equal(t, types.ActionFail, scenario.Schedule[0].Action)
	assert.True(t, scenario.Schedule[0].Monitor)
	assert.Equal(t, 5, scenario.TailSec)

	// explicit values survive, gaps pick up defaults
	assert.Equal(t, "http://controller:8181", config.Controller.BaseURL)
	assert.Equal(t, 3, config.ConfirmCount)
	assert.Equal(t, 2*time.Second, config.PollInterval())
	assert.Equal(t, 60*time.Second, config.ConvergenceTimeout())
	assert.Equal(t, "mininet", config.Driver)
	assert.Equal(t, "report.json", config.ReportPath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONTROLLER_URL", "http://10.1.2.3:8181")
	t.Setenv("CONFIRM_COUNT", "5")
	t.Setenv("EMULATOR_DRIVER", "fake")
	t.Setenv("CONVERGENCE_TIMEOUT", "not-a-number")

	config, err := LoadConfig(writeConfig(t, labYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://10.1.2.3:8181", config.Controller.BaseURL)
	assert.Equal(t, 5, config.ConfirmCount)
	assert.Equal(t, "fake", config.Driver)
	// unparsable override keeps the configured value
	assert.Equal(t, 60, config.ConvergenceTimeoutSec)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "topology: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
