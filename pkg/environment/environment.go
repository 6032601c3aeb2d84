package environment

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/sdnlab/harness-go/pkg/topology"
	"github.com/sdnlab/harness-go/pkg/types"
)

// ControllerConfig holds the RESTCONF endpoint and credentials of the
// SDN controller under test.
type ControllerConfig struct {
	BaseURL    string `yaml:"base-url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout-sec"`
	Insecure   bool   `yaml:"insecure"`
}

// Config is the full declarative description of a run: the topology to
// emulate, the scenarios to execute against it, and the knobs of the
// convergence monitor.
type Config struct {
	Topology  topology.Spec    `yaml:"topology"`
	Scenarios []types.Scenario `yaml:"scenarios"`

	Controller ControllerConfig `yaml:"controller"`

	// Driver selects the emulator backend; ControllerAddr is the OpenFlow
	// address the emulated switches connect to (not the RESTCONF URL).
	Driver                string `yaml:"driver"`
	ControllerAddr        string `yaml:"controller-addr"`
	PollIntervalSec       int    `yaml:"poll-interval-sec"`
	ConfirmCount          int    `yaml:"confirm-count"`
	ConvergenceTimeoutSec int    `yaml:"convergence-timeout-sec"`
	DiscoveryTimeoutSec   int    `yaml:"discovery-timeout-sec"`
	DiscoveryDelaySec     int    `yaml:"discovery-delay-sec"`
	ReportPath            string `yaml:"report-path"`
}

// LoadConfig reads the run configuration from a yaml file, applies
// defaults and then the env overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("failed to read the run configuration %v, err: %v", path, err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Errorf("failed to parse the run configuration %v, err: %v", path, err)
	}
	setDefaults(config)
	GetENV(config)
	return config, nil
}

func setDefaults(config *Config) {
	if config.Driver == "" {
		config.Driver = "mininet"
	}
	if config.ControllerAddr == "" {
		config.ControllerAddr = "tcp:127.0.0.1:6633"
	}
	if config.Controller.BaseURL == "" {
		config.Controller.BaseURL = "http://127.0.0.1:8181"
	}
	if config.Controller.Username == "" {
		config.Controller.Username = "admin"
	}
	if config.Controller.Password == "" {
		config.Controller.Password = "admin"
	}
	if config.Controller.TimeoutSec == 0 {
		config.Controller.TimeoutSec = 10
	}
	if config.PollIntervalSec == 0 {
		config.PollIntervalSec = 2
	}
	if config.ConfirmCount == 0 {
		config.ConfirmCount = 2
	}
	if config.ConvergenceTimeoutSec == 0 {
		config.ConvergenceTimeoutSec = 60
	}
	if config.DiscoveryTimeoutSec == 0 {
		config.DiscoveryTimeoutSec = 60
	}
	if config.DiscoveryDelaySec == 0 {
		config.DiscoveryDelaySec = 2
	}
	if config.ReportPath == "" {
		config.ReportPath = "report.json"
	}
}

//GetENV overrides the run configuration with the env variables set on the
//runner, so a deployment can retarget a canned config without editing it
func GetENV(config *Config) {
	config.Controller.BaseURL = Getenv("CONTROLLER_URL", config.Controller.BaseURL)
	config.Controller.Username = Getenv("CONTROLLER_USERNAME", config.Controller.Username)
	config.Controller.Password = Getenv("CONTROLLER_PASSWORD", config.Controller.Password)
	config.Driver = Getenv("EMULATOR_DRIVER", config.Driver)
	config.ReportPath = Getenv("REPORT_PATH", config.ReportPath)
	config.PollIntervalSec = getenvInt("POLL_INTERVAL", config.PollIntervalSec)
	config.ConfirmCount = getenvInt("CONFIRM_COUNT", config.ConfirmCount)
	config.ConvergenceTimeoutSec = getenvInt("CONVERGENCE_TIMEOUT", config.ConvergenceTimeoutSec)
}

// Getenv fetch the env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}

func getenvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// PollInterval returns the monitor poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// ConvergenceTimeout returns the monitor timeout as a duration
func (c *Config) ConvergenceTimeout() time.Duration {
	return time.Duration(c.ConvergenceTimeoutSec) * time.Second
}

// ControllerTimeout returns the REST client timeout as a duration
func (c *Config) ControllerTimeout() time.Duration {
	return time.Duration(c.Controller.TimeoutSec) * time.Second
}
