package linkfailure

import (
	"fmt"
	"os"
	"time"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/topology"
	"github.com/sdnlab/harness-go/pkg/types"
)

// LinkToggler is the slice of the emulator handle the injector drives
type LinkToggler interface {
	SetLinkState(linkID string, up bool) error
}

// Hooks let the orchestrator observe schedule execution. Before fires ahead
// of an event's transition (baseline capture), After fires once it has been
// applied (convergence monitoring). Either may be nil.
type Hooks struct {
	Before func(event types.ScheduleEvent) error
	After  func(event types.ScheduleEvent) error
}

// Schedule is a validated, ordered fault-injection sequence
type Schedule struct {
	events []types.ScheduleEvent
}

// NewSchedule validates the event sequence: relative times must be
// non-decreasing, actions known, links present in the topology. Validation
// failures surface before any event fires and before any emulator resource
// is touched.
func NewSchedule(events []types.ScheduleEvent, topo *topology.Topology) (*Schedule, error) {
	for i, ev := range events {
		if ev.Action != types.ActionFail && ev.Action != types.ActionRestore {
			return nil, cerrors.InvalidSchedule{Index: i, Reason: fmt.Sprintf("unknown action '%s'", ev.Action)}
		}
		if ev.At < 0 {
			return nil, cerrors.InvalidSchedule{Index: i, Reason: "negative relative time"}
		}
		if i > 0 && ev.At < events[i-1].At {
			return nil, cerrors.InvalidSchedule{Index: i, Reason: fmt.Sprintf("relative time %ds decreases after %ds", ev.At, events[i-1].At)}
		}
		if topo != nil {
			if _, ok := topo.Link(ev.LinkID); !ok {
				return nil, cerrors.InvalidSchedule{Index: i, Reason: fmt.Sprintf("unknown link '%s'", ev.LinkID)}
			}
		}
	}
	return &Schedule{events: events}, nil
}

// Events returns the validated sequence in order
func (s *Schedule) Events() []types.ScheduleEvent {
	out := make([]types.ScheduleEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Run advances through the schedule, sleeping until each event's relative
// time has elapsed since start and then applying it through the toggler.
// Redundant transitions are no-ops inside the toggler. The returned slice
// lists every link the schedule touched, for cleanup, even on error. A
// signal on abort stops the run between events.
func (s *Schedule) Run(toggler LinkToggler, start time.Time, abort <-chan os.Signal, hooks Hooks) ([]string, error) {
	var touched []string

	for _, ev := range s.events {
		wait := time.Until(start.Add(time.Duration(ev.At) * time.Second))
		if wait > 0 {
			select {
			case <-abort:
				log.Warn("[Injection]: Abort signal received, stopping the fault schedule")
				return touched, cerrors.Generic{Phase: "Injection", Reason: "aborted on signal"}
			case <-time.After(wait):
			}
		}

		if hooks.Before != nil {
			if err := hooks.Before(ev); err != nil {
				return touched, err
			}
		}

		up := ev.Action == types.ActionRestore
		log.Infof("[Injection]: t=%ds %s link %s", ev.At, ev.Action, ev.LinkID)
		if err := toggler.SetLinkState(ev.LinkID, up); err != nil {
			return touched, err
		}
		touched = append(touched, ev.LinkID)

		if hooks.After != nil {
			if err := hooks.After(ev); err != nil {
				return touched, err
			}
		}
	}

	return touched, nil
}
