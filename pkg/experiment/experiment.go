package experiment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/sdnlab/harness-go/faultlib/linkfailure"
	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/controller"
	"github.com/sdnlab/harness-go/pkg/emulator"
	"github.com/sdnlab/harness-go/pkg/environment"
	"github.com/sdnlab/harness-go/pkg/events"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/math"
	"github.com/sdnlab/harness-go/pkg/monitor"
	"github.com/sdnlab/harness-go/pkg/result"
	"github.com/sdnlab/harness-go/pkg/status"
	"github.com/sdnlab/harness-go/pkg/topology"
	"github.com/sdnlab/harness-go/pkg/types"
	"github.com/sdnlab/harness-go/pkg/utils/stringutils"
)

// Runner executes all configured scenarios sequentially against one
// emulated topology and produces a run report.
type Runner struct {
	cfg    *environment.Config
	topo   *topology.Topology
	driver emulator.Driver
	client *controller.Client
	abort  chan os.Signal
}

// New validates the whole configuration before anything is instantiated:
// a bad topology or a bad schedule in any scenario stops the run up front.
func New(cfg *environment.Config, driver emulator.Driver, client *controller.Client) (*Runner, error) {
	topo, err := topology.Build(cfg.Topology)
	if err != nil {
		return nil, err
	}
	if len(cfg.Scenarios) == 0 {
		return nil, cerrors.Generic{Phase: "Configuration", Reason: "no scenarios configured"}
	}
	for _, scenario := range cfg.Scenarios {
		if _, err := linkfailure.NewSchedule(scenario.Schedule, topo); err != nil {
			return nil, err
		}
		for _, rule := range scenario.Steering {
			if rule.FlowID == "" || rule.DstIP == "" {
				return nil, cerrors.Generic{Phase: "Configuration", Reason: fmt.Sprintf("scenario %v: steering rules need a flow-id and a dst-ip", scenario.Name)}
			}
			if _, ok := topo.Switch(rule.Switch); !ok {
				return nil, cerrors.Generic{Phase: "Configuration", Reason: fmt.Sprintf("scenario %v: steering rule %v targets unknown switch %v", scenario.Name, rule.FlowID, rule.Switch)}
			}
		}
		for _, tr := range scenario.Traffic {
			if _, ok := topo.Host(tr.Src); !ok {
				return nil, cerrors.Generic{Phase: "Configuration", Reason: fmt.Sprintf("scenario %v: unknown traffic source %v", scenario.Name, tr.Src)}
			}
			if _, ok := topo.Host(tr.Dst); !ok {
				return nil, cerrors.Generic{Phase: "Configuration", Reason: fmt.Sprintf("scenario %v: unknown traffic destination %v", scenario.Name, tr.Dst)}
			}
		}
	}

	abort := make(chan os.Signal, 1)
	signal.Notify(abort, os.Interrupt, syscall.SIGTERM)

	return &Runner{cfg: cfg, topo: topo, driver: driver, client: client, abort: abort}, nil
}

// BuildDriver constructs the emulator backend selected by the configuration
func BuildDriver(cfg *environment.Config) (emulator.Driver, error) {
	switch cfg.Driver {
	case "mininet":
		return emulator.NewMininetDriver(emulator.MininetConfig{ControllerAddr: cfg.ControllerAddr}), nil
	case "fake":
		return emulator.NewFakeDriver(), nil
	default:
		return nil, cerrors.Generic{Phase: "Configuration", Reason: fmt.Sprintf("unknown emulator driver '%v'", cfg.Driver)}
	}
}

// Run instantiates the topology, waits for the controller to discover it and
// executes every scenario, then writes the run report. A failed scenario does
// not stop the following ones.
func (r *Runner) Run() (*result.RunReport, error) {
	report := &result.RunReport{RunID: stringutils.GetRunID(), ConfigDigest: configDigest(r.cfg), StartedAt: time.Now()}

	log.InfoWithValues("[PreReq]: Instantiating the emulated topology", map[string]interface{}{
		"Switches": len(r.topo.Switches()),
		"Hosts":    len(r.topo.Hosts()),
		"Links":    len(r.topo.Links()),
	})
	handle, err := emulator.Instantiate(r.topo, r.driver)
	if err != nil {
		log.Errorf("Unable to instantiate the emulated topology, err: %v", err)
		return r.failAllScenarios(report, err, result.EmulatorSetup)
	}
	defer func() {
		if err := handle.Teardown(); err != nil {
			log.Errorf("Teardown left residue behind, err: %v", err)
		}
	}()

	if err := status.CheckDiscovery(r.client, r.topo, r.cfg.DiscoveryTimeoutSec, r.cfg.DiscoveryDelaySec); err != nil {
		log.Errorf("Controller never discovered the topology, err: %v", err)
		return r.failAllScenarios(report, err, result.DiscoveryCheck)
	}

	for _, scenario := range r.cfg.Scenarios {
		log.Infof("[Scenario]: Running %v", scenario.Name)
		record := r.runScenario(handle, scenario)
		result.Summary(&record)
		report.Records = append(report.Records, record)
	}

	report.EndedAt = time.Now()
	if err := result.Write(report, r.cfg.ReportPath); err != nil {
		return report, err
	}
	return report, nil
}

// failAllScenarios closes out a run that died before the first scenario could
// execute. Every configured scenario still gets its failed record and the
// report is still written.
func (r *Runner) failAllScenarios(report *result.RunReport, err error, failStep string) (*result.RunReport, error) {
	for _, scenario := range r.cfg.Scenarios {
		record := types.MeasurementRecord{}
		types.SetResultAttributes(&record, scenario.Name)
		result.RecordAfterFailure(&record, err, failStep)
		report.Records = append(report.Records, record)
	}
	report.EndedAt = time.Now()
	return report, result.Write(report, r.cfg.ReportPath)
}

// runScenario names its result so the deferred link-state restore can still
// append its cleanup event to the returned record
func (r *Runner) runScenario(handle *emulator.Handle, scenario types.Scenario) (record types.MeasurementRecord) {
	types.SetResultAttributes(&record, scenario.Name)
	result.MarkStart(&record)
	events.Emit(&record, types.ScenarioStartEvent, fmt.Sprintf("scenario %v started", scenario.Name))

	// whatever happens below, the topology is handed to the next scenario
	// with every link in its pre-scenario state
	preStates := handle.LinkStates()
	defer r.restoreLinkState(handle, preStates, &record)

	schedule, err := linkfailure.NewSchedule(scenario.Schedule, r.topo)
	if err != nil {
		result.RecordAfterFailure(&record, err, result.ScheduleValidation)
		return record
	}

	if err := r.installSteering(scenario, &record); err != nil {
		result.RecordAfterFailure(&record, err, result.PathSteering)
		return record
	}
	defer r.removeSteering(scenario, &record)

	start := time.Now()
	var streams []string
	maxDuration := 0
	for _, tr := range scenario.Traffic {
		streamID, err := handle.GenerateTraffic(tr.Src, tr.Dst, tr.RateMbps, tr.DurationSec)
		if err != nil {
			result.RecordAfterFailure(&record, err, result.TrafficStart)
			return record
		}
		streams = append(streams, streamID)
		maxDuration = math.Maximum(maxDuration, tr.DurationSec)
		events.Emit(&record, types.TrafficStartEvent, fmt.Sprintf("stream %v: %v -> %v at %vMbit/s for %vs", streamID, tr.Src, tr.Dst, tr.RateMbps, tr.DurationSec))
	}

	mon := monitor.New(r.client, monitor.Settings{
		Interval:     r.cfg.PollInterval(),
		ConfirmCount: r.cfg.ConfirmCount,
		Timeout:      r.cfg.ConvergenceTimeout(),
	})

	var watched []string
	var baseline string
	hooks := linkfailure.Hooks{
		Before: func(ev types.ScheduleEvent) error {
			if !ev.Monitor {
				return nil
			}
			watched = r.watchedNodes(ev.LinkID)
			fp, err := mon.Baseline(watched)
			if err != nil {
				return err
			}
			baseline = fp
			return nil
		},
		After: func(ev types.ScheduleEvent) error {
			events.Emit(&record, faultReason(ev), fmt.Sprintf("link %v %v at t+%vs", ev.LinkID, actionVerb(ev.Action), ev.At))
			if !ev.Monitor {
				return nil
			}
			latency, err := mon.Watch(ev.LinkID, watched, baseline, time.Now())
			if err != nil {
				if cerrors.GetErrorType(err) == cerrors.ErrorTypeConvergenceTimeout {
					record.Convergence = append(record.Convergence, types.ConvergenceMeasurement{LinkID: ev.LinkID, Action: ev.Action, TimedOut: true})
					record.Annotations = append(record.Annotations, fmt.Sprintf("convergence after %v of %v timed out", ev.Action, ev.LinkID))
					events.Emit(&record, types.ConvergenceTimeoutEvent, fmt.Sprintf("no stable new flow state after %v of %v", ev.Action, ev.LinkID))
					return nil
				}
				return err
			}
			record.Convergence = append(record.Convergence, types.ConvergenceMeasurement{LinkID: ev.LinkID, Action: ev.Action, LatencySec: latency.Seconds()})
			events.Emit(&record, types.ConvergedEvent, fmt.Sprintf("flow state stabilized %.2fs after %v of %v", latency.Seconds(), ev.Action, ev.LinkID))
			return nil
		},
	}

	if _, err := schedule.Run(handle, start, r.abort, hooks); err != nil {
		switch cerrors.GetErrorType(err) {
		case cerrors.ErrorTypeControllerUnreach:
			result.RecordAfterFailure(&record, err, result.ConvergenceWatch)
		default:
			result.RecordAfterFailure(&record, err, result.FaultInjection)
			if strings.Contains(err.Error(), "aborted on signal") {
				record.Verdict = types.AbortVerdict
			}
		}
		return record
	}

	// let the streams finish plus the configured tail before reading stats
	preCounters := r.samplePortCounters()
	deadline := start.Add(time.Duration(maxDuration+scenario.TailSec) * time.Second)
	if wait := time.Until(deadline); wait > 0 {
		select {
		case <-time.After(wait):
		case sig := <-r.abort:
			err := cerrors.Generic{Phase: "Drain", Reason: fmt.Sprintf("aborted on signal %v", sig)}
			result.RecordAfterFailure(&record, err, result.StatsCollection)
			record.Verdict = types.AbortVerdict
			return record
		}
	}

	r.logPortCounterDeltas(preCounters)

	for _, streamID := range streams {
		stats, err := handle.CollectStats(streamID)
		if err != nil {
			if cerrors.GetErrorType(err) == cerrors.ErrorTypeStreamNotFound {
				record.Annotations = append(record.Annotations, fmt.Sprintf("no statistics for stream %v", streamID))
				continue
			}
			result.RecordAfterFailure(&record, err, result.StatsCollection)
			return record
		}
		record.Phases = append(record.Phases, bucketPhases(streamID, stats, scenario.Schedule, start, maxDuration+scenario.TailSec)...)
	}

	verdict := types.PassVerdict
	for _, measurement := range record.Convergence {
		if measurement.TimedOut {
			verdict = types.FailVerdict
		}
	}
	result.MarkCompleted(&record, verdict)
	events.Emit(&record, types.Summary, fmt.Sprintf("scenario %v finished with verdict %v", scenario.Name, verdict))
	return record
}

// restoreLinkState brings every link the scenario touched back to its
// pre-scenario state
func (r *Runner) restoreLinkState(handle *emulator.Handle, preStates map[string]emulator.LinkState, record *types.MeasurementRecord) {
	restored := 0
	var linkIDs []string
	for linkID := range preStates {
		linkIDs = append(linkIDs, linkID)
	}
	sort.Strings(linkIDs)
	for _, linkID := range linkIDs {
		current, ok := handle.LinkState(linkID)
		if !ok || current.Up == preStates[linkID].Up {
			continue
		}
		if err := handle.SetLinkState(linkID, preStates[linkID].Up); err != nil {
			log.Errorf("Unable to restore link %v, err: %v", linkID, err)
			record.Annotations = append(record.Annotations, fmt.Sprintf("link %v left in a modified state", linkID))
			continue
		}
		restored++
	}
	if restored > 0 {
		events.Emit(record, types.CleanupEvent, fmt.Sprintf("restored %v link(s) to their pre-scenario state", restored))
	}
}

// watchedNodes maps the switches affected by a link change to the node ids
// the controller knows them by
func (r *Runner) watchedNodes(linkID string) []string {
	switches := r.topo.ReachableSwitches(linkID)
	nodes := make([]string, 0, len(switches))
	for _, switchID := range switches {
		nodes = append(nodes, r.topo.NodeID(switchID))
	}
	return nodes
}

// samplePortCounters reads every switch's port counters from the controller.
// The counters are informational, a poll failure never fails the scenario.
func (r *Runner) samplePortCounters() map[string]controller.PortStats {
	counters := map[string]controller.PortStats{}
	for _, sw := range r.topo.Switches() {
		stats, err := r.client.NodeConnectorStats(r.topo.NodeID(sw.ID))
		if err != nil {
			log.Warnf("[Stats]: Unable to read port counters of %v, err: %v", sw.ID, err)
			continue
		}
		for _, ps := range stats {
			counters[ps.ConnectorID] = ps
		}
	}
	return counters
}

func (r *Runner) logPortCounterDeltas(before map[string]controller.PortStats) {
	if len(before) == 0 {
		return
	}
	for connector, now := range r.samplePortCounters() {
		prev, ok := before[connector]
		if !ok {
			continue
		}
		log.InfoWithValues("[Stats]: Port counter delta", logrus.Fields{
			"Connector": connector,
			"RxBytes":   now.BytesReceived - prev.BytesReceived,
			"TxBytes":   now.BytesTransmitted - prev.BytesTransmitted,
		})
	}
}

func configDigest(cfg *environment.Config) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func faultReason(ev types.ScheduleEvent) string {
	if ev.Action == types.ActionRestore {
		return types.FaultRestoreEvent
	}
	return types.FaultInjectEvent
}

func actionVerb(action string) string {
	if action == types.ActionRestore {
		return "restored"
	}
	return "failed"
}

// installSteering pushes the scenario's path-steering flows to the
// controller before any traffic starts
func (r *Runner) installSteering(scenario types.Scenario, record *types.MeasurementRecord) error {
	for _, rule := range scenario.Steering {
		body := controller.PathFlow(rule.FlowID, rule.DstIP, rule.OutputPort, rule.Priority)
		if err := r.client.InstallFlow(r.topo.NodeID(rule.Switch), rule.FlowID, body); err != nil {
			return err
		}
		events.Emit(record, types.FlowInstallEvent, fmt.Sprintf("flow %v on %v steering %v out port %v", rule.FlowID, rule.Switch, rule.DstIP, rule.OutputPort))
	}
	return nil
}

// removeSteering deletes the scenario's steering flows again; a leftover flow
// is annotated rather than failing an otherwise finished scenario
func (r *Runner) removeSteering(scenario types.Scenario, record *types.MeasurementRecord) {
	for _, rule := range scenario.Steering {
		if err := r.client.DeleteFlow(r.topo.NodeID(rule.Switch), rule.FlowID); err != nil {
			log.Errorf("Unable to remove steering flow %v, err: %v", rule.FlowID, err)
			record.Annotations = append(record.Annotations, fmt.Sprintf("steering flow %v left installed on %v", rule.FlowID, rule.Switch))
		}
	}
}

// bucketPhases splits a stream's interval samples into windows bounded by the
// schedule events, so the report shows throughput before, during and after
// each fault
func bucketPhases(streamID string, stats *emulator.TrafficStats, schedule []types.ScheduleEvent, start time.Time, totalSec int) []types.PhaseStats {
	type window struct {
		name  string
		start time.Time
		end   time.Time
	}

	var windows []window
	cursor := start
	name := "baseline"
	for _, ev := range schedule {
		boundary := start.Add(time.Duration(ev.At) * time.Second)
		if boundary.After(cursor) {
			windows = append(windows, window{name: name, start: cursor, end: boundary})
			cursor = boundary
		}
		name = fmt.Sprintf("after-%v-%v", strings.ToLower(ev.Action), ev.LinkID)
	}
	windows = append(windows, window{name: name, start: cursor, end: start.Add(time.Duration(totalSec) * time.Second)})

	var phases []types.PhaseStats
	for _, w := range windows {
		phase := types.PhaseStats{Name: streamID + "/" + w.name, Start: w.start, End: w.end}
		covered := 0.0
		lossSum := 0.0
		samples := 0
		for _, sample := range stats.Samples {
			if sample.Start.Before(w.start) || !sample.Start.Before(w.end) {
				continue
			}
			phase.SentBytes += sample.Bytes
			covered += sample.End.Sub(sample.Start).Seconds()
			lossSum += sample.LossPct
			samples++
		}
		if samples == 0 {
			continue
		}
		phase.ThroughputMbps = math.ThroughputMbps(phase.SentBytes, covered)
		phase.LossPct = lossSum / float64(samples)
		phases = append(phases, phase)
	}

	// the per-phase buckets carry sent bytes only, the stream totals carry
	// the received side
	if len(phases) > 0 {
		phases[len(phases)-1].ReceivedBytes = stats.ReceivedBytes
	}

	log.InfoWithValues("[Stats]: Stream statistics collected", logrus.Fields{
		"Stream":        streamID,
		"SentBytes":     stats.SentBytes,
		"ReceivedBytes": stats.ReceivedBytes,
		"LossPct":       stats.LossPct,
	})
	return phases
}
