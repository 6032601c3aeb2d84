package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnlab/harness-go/pkg/types"
)

func TestEmitAppendsToRecord(t *testing.T) {
	record := types.MeasurementRecord{Scenario: "primary-path-failure"}

	Emit(&record, types.FaultInjectEvent, "link s1-s2 failed at t+30s")
	Emit(&record, types.ConvergedEvent, "flow state stabilized 4.20s after FAIL of s1-s2")

	require.Len(t, record.Events, 2)
	assert.Equal(t, types.FaultInjectEvent, record.Events[0].Reason)
	assert.Equal(t, types.ConvergedEvent, record.Events[1].Reason)
	assert.False(t, record.Events[0].Time.IsZero())
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	record := types.MeasurementRecord{Scenario: "primary-path-failure"}
	event := types.RunEvent{}
	types.SetEventAttributes(&event, types.CleanupEvent, "restored 1 link(s) to their pre-scenario state")
	stamp := event.Time

	Record(&event, &record)

	require.Len(t, record.Events, 1)
	assert.Equal(t, stamp, record.Events[0].Time)
}
