package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidID       = 1004
	ErrCodeMissingRequired = 1009
	ErrCodeInvalidImage    = 1015
	ErrCodeInvalidEmail    = 1016
	ErrCodeInvalidPassword = 1017
	ErrCodeUnsupportedBody = 1018

	// Domain state (2xxx)
	ErrCodePostNotFound = 2001
	ErrCodeEmailExists  = 2101
	ErrCodeConflict     = 2102

	// Auth (3xxx)
	ErrCodeInvalidCredentials = 3001

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeImageFailure = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodePostNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeRequestTooLarge
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
