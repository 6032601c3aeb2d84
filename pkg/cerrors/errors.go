package cerrors

import "fmt"

type Generic struct {
	Phase  string
	Reason string
}

func (e Generic) Error() string {
	if e.Phase == "" {
		return e.Reason
	}
	return fmt.Sprintf("[%s]: %s", e.Phase, e.Reason)
}

func (e Generic) UserFriendly() bool {
	return true
}

func (e Generic) ErrorType() ErrorType {
	return ErrorTypeGeneric
}

// InvalidTopology is raised at build time when a topology spec references
// missing nodes, duplicates an edge, or is not connected. Target names the
// offending node or edge.
type InvalidTopology struct {
	Target string
	Reason string
}

func (e InvalidTopology) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("invalid topology, %s", e.Reason)
	}
	return fmt.Sprintf("invalid topology at '%s', %s", e.Target, e.Reason)
}

func (e InvalidTopology) UserFriendly() bool {
	return true
}

func (e InvalidTopology) ErrorType() ErrorType {
	return ErrorTypeInvalidTopology
}

// InvalidSchedule is raised at schedule validation time, before any event fires.
type InvalidSchedule struct {
	Index  int
	Reason string
}

func (e InvalidSchedule) Error() string {
	return fmt.Sprintf("invalid fault schedule at event %d, %s", e.Index, e.Reason)
}

func (e InvalidSchedule) UserFriendly() bool {
	return true
}

func (e InvalidSchedule) ErrorType() ErrorType {
	return ErrorTypeInvalidSchedule
}

// EmulatorUnavailable reports a failed call against the backing emulator.
type EmulatorUnavailable struct {
	Operation string
	Target    string
	Reason    string
}

func (e EmulatorUnavailable) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("emulator %s failed, %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("emulator %s failed for '%s', %s", e.Operation, e.Target, e.Reason)
}

func (e EmulatorUnavailable) UserFriendly() bool {
	return true
}

func (e EmulatorUnavailable) ErrorType() ErrorType {
	return ErrorTypeEmulatorUnavailable
}

// ControllerUnreachable reports a transport failure or non-success response
// from the controller REST surface.
type ControllerUnreachable struct {
	Endpoint string
	Reason   string
}

func (e ControllerUnreachable) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("controller unreachable, %s", e.Reason)
	}
	return fmt.Sprintf("controller unreachable at '%s', %s", e.Endpoint, e.Reason)
}

func (e ControllerUnreachable) UserFriendly() bool {
	return true
}

func (e ControllerUnreachable) ErrorType() ErrorType {
	return ErrorTypeControllerUnreach
}

// StreamNotFound reports a stats lookup for a traffic stream that was not retained.
type StreamNotFound struct {
	StreamID string
}

func (e StreamNotFound) Error() string {
	return fmt.Sprintf("traffic stream '%s' not found, stats were not retained", e.StreamID)
}

func (e StreamNotFound) UserFriendly() bool {
	return true
}

func (e StreamNotFound) ErrorType() ErrorType {
	return ErrorTypeStreamNotFound
}

// ConvergenceTimeout reports that the flow state did not stabilize within the
// configured window. LastState carries the fingerprint last seen by the monitor.
type ConvergenceTimeout struct {
	LinkID    string
	Timeout   string
	LastState string
}

func (e ConvergenceTimeout) Error() string {
	return fmt.Sprintf("no convergence observed for link '%s' within %s, last state %s", e.LinkID, e.Timeout, e.LastState)
}

func (e ConvergenceTimeout) UserFriendly() bool {
	return true
}

func (e ConvergenceTimeout) ErrorType() ErrorType {
	return ErrorTypeConvergenceTimeout
}
