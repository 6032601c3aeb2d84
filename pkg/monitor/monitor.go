package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/controller"
	"github.com/sdnlab/harness-go/pkg/log"
)

// FlowPoller is the slice of the controller client the monitor needs
type FlowPoller interface {
	PollFlows(switchID string) ([]controller.FlowEntry, error)
}

// State is the monitor's observation state
type State string

const (
	// StateUnstable means the flow set is still changing between polls
	StateUnstable State = "UNSTABLE"
	// StateConfirming means identical polls are accumulating towards the confirmation count
	StateConfirming State = "CONFIRMING"
	// StateConverged means the flow state stabilized on something new
	StateConverged State = "CONVERGED"
	// StateTimedOut means no stable new state appeared within the window
	StateTimedOut State = "TIMED_OUT"
)

// Settings are the monitor tuning knobs, all exposed through configuration
type Settings struct {
	Interval     time.Duration
	ConfirmCount int
	Timeout      time.Duration
}

// Monitor detects when the controller's installed flow state stabilizes
// after a topology change and reports the elapsed time
type Monitor struct {
	poller   FlowPoller
	settings Settings
}

func New(poller FlowPoller, settings Settings) *Monitor {
	if settings.Interval <= 0 {
		settings.Interval = 2 * time.Second
	}
	if settings.ConfirmCount <= 0 {
		settings.ConfirmCount = 2
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	return &Monitor{poller: poller, settings: settings}
}

// Baseline fingerprints the current flow state of the watched switches,
// taken before the triggering event so the monitor can tell a reaction from
// idleness
func (m *Monitor) Baseline(watched []string) (string, error) {
	return m.fingerprint(watched)
}

// Watch polls the controller until the flow-entry set of the watched switches
// has been identical for ConfirmCount consecutive polls and differs from the
// pre-event baseline. The returned latency spans from the triggering event to
// the first poll of the confirming streak. A poll error aborts the watch; an
// expired window yields a ConvergenceTimeout.
func (m *Monitor) Watch(linkID string, watched []string, baseline string, trigger time.Time) (time.Duration, error) {
	deadline := time.Now().Add(m.settings.Timeout)

	state := StateUnstable
	var last string
	var streak int
	var streakStart time.Time

	log.InfoWithValues("[Monitor]: Watching for flow-state convergence", logrus.Fields{
		"Link":         linkID,
		"Switches":     len(watched),
		"Interval":     m.settings.Interval,
		"ConfirmCount": m.settings.ConfirmCount,
		"Timeout":      m.settings.Timeout,
	})

	for {
		if time.Now().After(deadline) {
			log.Warnf("[Monitor]: No convergence for link %s within %v", linkID, m.settings.Timeout)
			return 0, cerrors.ConvergenceTimeout{
				LinkID:    linkID,
				Timeout:   m.settings.Timeout.String(),
				LastState: stateDigest(last),
			}
		}
		time.Sleep(m.settings.Interval)

		fp, err := m.fingerprint(watched)
		if err != nil {
			return 0, err
		}
		polledAt := time.Now()

		if fp == last && streak > 0 {
			streak++
			state = StateConfirming
		} else {
			streak = 1
			streakStart = polledAt
			state = StateUnstable
		}
		last = fp

		if streak >= m.settings.ConfirmCount && fp != baseline {
			state = StateConverged
			latency := streakStart.Sub(trigger)
			log.Infof("[Monitor]: Flow state for link %s converged in %v (%s)", linkID, latency, state)
			return latency, nil
		}
	}
}

// fingerprint joins the per-switch flow fingerprints into one comparable string
func (m *Monitor) fingerprint(watched []string) (string, error) {
	sorted := make([]string, len(watched))
	copy(sorted, watched)
	sort.Strings(sorted)

	var parts []string
	for _, sw := range sorted {
		flows, err := m.poller.PollFlows(sw)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s=%s", sw, controller.Fingerprint(flows)))
	}
	return strings.Join(parts, "\n"), nil
}

func stateDigest(fp string) string {
	if fp == "" {
		return "<empty>"
	}
	if len(fp) > 64 {
		return fp[:64] + "..."
	}
	return fp
}
