package events

import (
	"time"

	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/types"
)

// Record appends the event to the scenario record and mirrors it to the log,
// so the timeline survives in both the report and the console output.
func Record(event *types.RunEvent, record *types.MeasurementRecord) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	record.Events = append(record.Events, *event)
	log.InfoWithValues("[Event]: "+event.Message, map[string]interface{}{
		"Reason":   event.Reason,
		"Scenario": record.Scenario,
	})
}

// Emit builds and records an event in one call.
func Emit(record *types.MeasurementRecord, reason, message string) {
	event := types.RunEvent{}
	types.SetEventAttributes(&event, reason, message)
	Record(&event, record)
}
