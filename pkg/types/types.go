package types

import (
	"time"
)

const (
	// ScenarioPending marks a scenario that has not started yet
	ScenarioPending string = "PENDING"
	// ScenarioRunning marks a scenario whose traffic and schedule are active
	ScenarioRunning string = "RUNNING"
	// ScenarioCompleted marks a scenario whose events all fired and streams were sampled
	ScenarioCompleted string = "COMPLETED"
	// ScenarioFailed marks a scenario aborted by an unrecovered emulator/controller error
	ScenarioFailed string = "FAILED"

	// AwaitedVerdict marked the start of a scenario
	AwaitedVerdict string = "Awaited"
	// PassVerdict marked the verdict as passed in the end of a scenario
	PassVerdict string = "Pass"
	// FailVerdict marked the verdict as failed in the end of a scenario
	FailVerdict string = "Fail"
	// AbortVerdict marked the verdict as abort when the run was interrupted
	AbortVerdict string = "Abort"

	// ActionFail brings a link down
	ActionFail string = "FAIL"
	// ActionRestore brings a link back up
	ActionRestore string = "RESTORE"

	// ScenarioStartEvent initial stage of a scenario
	ScenarioStartEvent string = "ScenarioStart"
	// FlowInstallEvent marks a path-steering flow pushed to the controller
	FlowInstallEvent string = "FlowInstall"
	// TrafficStartEvent marks the launch of a background traffic stream
	TrafficStartEvent string = "TrafficStart"
	// FaultInjectEvent marks an applied link failure
	FaultInjectEvent string = "FaultInject"
	// FaultRestoreEvent marks an applied link restore
	FaultRestoreEvent string = "FaultRestore"
	// ConvergedEvent marks a detected flow-state convergence
	ConvergedEvent string = "Converged"
	// ConvergenceTimeoutEvent marks a monitor that gave up waiting
	ConvergenceTimeoutEvent string = "ConvergenceTimeout"
	// CleanupEvent marks the pre-scenario link state restore
	CleanupEvent string = "Cleanup"
	// Summary final stage of a scenario update the verdict
	Summary string = "Summary"
)

// TrafficSpec describes one background host-to-host traffic stream
type TrafficSpec struct {
	Src         string  `yaml:"src" json:"src"`
	Dst         string  `yaml:"dst" json:"dst"`
	RateMbps    float64 `yaml:"rate-mbps" json:"rateMbps"`
	DurationSec int     `yaml:"duration-sec" json:"durationSec"`
}

// ScheduleEvent is one fault-injection step, relative to scenario start.
// Monitor requests convergence monitoring once the event has been applied.
type ScheduleEvent struct {
	At      int    `yaml:"at" json:"at"`
	LinkID  string `yaml:"link" json:"link"`
	Action  string `yaml:"action" json:"action"`
	Monitor bool   `yaml:"monitor" json:"monitor"`
}

// SteeringRule pre-installs a flow on a switch before the scenario's traffic
// starts, steering a destination onto a chosen output port. Installed flows
// are removed again when the scenario ends.
type SteeringRule struct {
	Switch     string `yaml:"switch" json:"switch"`
	FlowID     string `yaml:"flow-id" json:"flowId"`
	DstIP      string `yaml:"dst-ip" json:"dstIp"`
	OutputPort int    `yaml:"output-port" json:"outputPort"`
	Priority   int    `yaml:"priority" json:"priority"`
}

// Scenario is one configured experiment: traffic plus a fault schedule.
// It is read-only during execution.
type Scenario struct {
	Name     string          `yaml:"name" json:"name"`
	Steering []SteeringRule  `yaml:"steering,omitempty" json:"steering,omitempty"`
	Traffic  []TrafficSpec   `yaml:"traffic" json:"traffic"`
	Schedule []ScheduleEvent `yaml:"schedule" json:"schedule"`
	// TailSec keeps the scenario alive after the last event so streams can drain
	TailSec int `yaml:"tail-sec" json:"tailSec"`
}

// RunEvent is a timestamped milestone appended to the active measurement record
type RunEvent struct {
	Time    time.Time `json:"time"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
}

// PhaseStats carries per-phase traffic figures, one phase per schedule window
type PhaseStats struct {
	Name           string    `json:"name"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	SentBytes      int64     `json:"sentBytes"`
	ReceivedBytes  int64     `json:"receivedBytes"`
	LossPct        float64   `json:"lossPct"`
	ThroughputMbps float64   `json:"throughputMbps"`
}

// ConvergenceMeasurement records one monitored fault event. TimedOut set means
// the latency is undefined for this event.
type ConvergenceMeasurement struct {
	LinkID     string  `json:"link"`
	Action     string  `json:"action"`
	LatencySec float64 `json:"latencySec"`
	TimedOut   bool    `json:"timedOut"`
}

// MeasurementRecord is the single result row of one scenario. Exactly one is
// produced per configured scenario, whatever the outcome.
type MeasurementRecord struct {
	Scenario    string                   `json:"scenario"`
	Status      string                   `json:"status"`
	Verdict     string                   `json:"verdict"`
	FailStep    string                   `json:"failStep,omitempty"`
	FailReason  string                   `json:"failReason,omitempty"`
	FailMessage string                   `json:"failMessage,omitempty"`
	StartedAt   time.Time                `json:"startedAt"`
	EndedAt     time.Time                `json:"endedAt"`
	Convergence []ConvergenceMeasurement `json:"convergence"`
	Phases      []PhaseStats             `json:"phases"`
	Events      []RunEvent               `json:"events"`
	Annotations []string                 `json:"annotations,omitempty"`
}

//SetResultAttributes initialises a measurement record at scenario start
func SetResultAttributes(record *MeasurementRecord, scenarioName string) {
	record.Scenario = scenarioName
	record.Status = ScenarioPending
	record.Verdict = AwaitedVerdict
	record.FailStep = "N/A"
	record.StartedAt = time.Now()
}

//SetEventAttributes initialises a run event before it is recorded
func SetEventAttributes(event *RunEvent, reason string, message string) {
	event.Time = time.Now()
	event.Reason = reason
	event.Message = message
}
