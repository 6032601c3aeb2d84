package result

const (
	ConfigLoad         = "[setup]: failed to load the run configuration"
	TopologyBuild      = "[setup]: failed to build the topology model"
	ScheduleValidation = "[setup]: failed to validate the fault schedule"
	EmulatorSetup      = "[setup]: failed to instantiate the emulated network"
	DiscoveryCheck     = "[pre-run]: failed waiting for controller topology discovery"
	BaselineCapture    = "[pre-run]: failed to capture the flow baseline"
	PathSteering       = "[run]: failed to install the path-steering flows"
	TrafficStart       = "[run]: failed to start the traffic stream"
	FaultInjection     = "[run]: failed while applying the fault schedule"
	ConvergenceWatch   = "[run]: failed while watching for reconvergence"
	StatsCollection    = "[post-run]: failed to collect traffic statistics"
	Cleanup            = "[post-run]: failed to restore link state"
	ReportWrite        = "[post-run]: failed to write the run report"
)
