package cerrors

import "github.com/palantir/stacktrace"

type ErrorType string

const (
	ErrorTypeNonUserFriendly     ErrorType = "NON_USER_FRIENDLY_ERROR"
	ErrorTypeGeneric             ErrorType = "GENERIC_ERROR"
	ErrorTypeInvalidTopology     ErrorType = "INVALID_TOPOLOGY_ERROR"
	ErrorTypeInvalidSchedule     ErrorType = "INVALID_SCHEDULE_ERROR"
	ErrorTypeEmulatorUnavailable ErrorType = "EMULATOR_UNAVAILABLE_ERROR"
	ErrorTypeControllerUnreach   ErrorType = "CONTROLLER_UNREACHABLE_ERROR"
	ErrorTypeStreamNotFound      ErrorType = "STREAM_NOT_FOUND_ERROR"
	ErrorTypeConvergenceTimeout  ErrorType = "CONVERGENCE_TIMEOUT_ERROR"
)

type userFriendly interface {
	UserFriendly() bool
	ErrorType() ErrorType
}

// IsUserFriendly returns true if err is marked as safe to present in a measurement record
func IsUserFriendly(err error) bool {
	ufe, ok := err.(userFriendly)
	return ok && ufe.UserFriendly()
}

// GetErrorType returns the type of error if the error is user-friendly
func GetErrorType(err error) ErrorType {
	if ufe, ok := err.(userFriendly); ok {
		return ufe.ErrorType()
	}
	return ErrorTypeNonUserFriendly
}

func GetRootCauseAndErrorCode(err error) (string, ErrorType) {
	rootCause := stacktrace.RootCause(err)
	errorType := GetErrorType(rootCause)
	if !IsUserFriendly(rootCause) {
		return err.Error(), errorType
	}
	return rootCause.Error(), errorType
}
