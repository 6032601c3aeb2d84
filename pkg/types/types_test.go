package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetResultAttributes(t *testing.T) {
	record := MeasurementRecord{}
	SetResultAttributes(&record, "primary-path-failure")

	assert.Equal(t, "primary-path-failure", record.Scenario)
	assert.Equal(t, ScenarioPending, record.Status)
	assert.Equal(t, AwaitedVerdict, record.Verdict)
	assert.Equal(t, "N/A", record.FailStep)
	assert.False(t, record.StartedAt.IsZero())
}

func TestSetEventAttributes(t *testing.T) {
	event := RunEvent{}
	SetEventAttributes(&event, FaultInjectEvent, "link s1-s2 failed at t+30s")

	assert.Equal(t, FaultInjectEvent, event.Reason)
	assert.Equal(t, "link s1-s2 failed at t+30s", event.Message)
	assert.False(t, event.Time.IsZero())
}
