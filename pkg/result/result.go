package result

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kyokomi/emoji"
	"github.com/pkg/errors"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/types"
)

// RunReport is the on-disk artifact of a full run, one record per scenario.
// ConfigDigest ties the report back to the exact configuration that produced it.
type RunReport struct {
	RunID        string                    `json:"runId"`
	ConfigDigest string                    `json:"configDigest,omitempty"`
	StartedAt    time.Time                 `json:"startedAt"`
	EndedAt      time.Time                 `json:"endedAt"`
	Records      []types.MeasurementRecord `json:"records"`
}

// MarkStart stamps the record at the start of a scenario (SOT).
func MarkStart(record *types.MeasurementRecord) {
	record.Status = types.ScenarioRunning
	record.Verdict = types.AwaitedVerdict
	record.StartedAt = time.Now()
}

// RecordAfterFailure closes the record with the failed step and the root
// cause of the error that stopped the scenario.
func RecordAfterFailure(record *types.MeasurementRecord, err error, failStep string) {
	rootCause, errorCode := cerrors.GetRootCauseAndErrorCode(err)
	record.Status = types.ScenarioFailed
	record.Verdict = types.FailVerdict
	record.FailStep = failStep
	record.FailReason = string(errorCode)
	record.FailMessage = rootCause
	record.EndedAt = time.Now()
}

// MarkCompleted closes the record at the end of a scenario (EOT).
func MarkCompleted(record *types.MeasurementRecord, verdict string) {
	record.Status = types.ScenarioCompleted
	record.Verdict = verdict
	record.EndedAt = time.Now()
}

// Summary logs the per-scenario outcome once the record is closed.
func Summary(record *types.MeasurementRecord) {
	switch record.Verdict {
	case types.PassVerdict:
		log.Infof("[The End]: %v scenario has been Passed %v!!!", record.Scenario, emoji.Sprint(":thumbsup:"))
	case types.FailVerdict:
		log.Infof("[The End]: %v scenario has been Failed %v!!!", record.Scenario, emoji.Sprint(":thumbsdown:"))
	default:
		log.Infof("[The End]: %v scenario finished with verdict %v", record.Scenario, record.Verdict)
	}
}

// Write marshals the report and writes it to path, creating parent
// directories as needed.
func Write(report *RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Errorf("failed to marshal the run report, err: %v", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("failed to create the report directory, err: %v", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("failed to write the run report, err: %v", err)
	}
	log.Infof("[Report]: Run report written to %v", path)
	return nil
}
