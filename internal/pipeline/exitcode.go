package pipeline

import "costpilot/internal/cperrors"

// Exit codes per spec.md §6: 0 success/no block, 2 blocking policy
// violation, 10-15 error categories. 1 is reserved and never returned.
const (
	ExitSuccess          = 0
	ExitPolicyBlocked    = 2
	ExitParseError       = 10
	ExitValidationErr    = 11
	ExitSandboxErr       = 12
	ExitLicenseErr       = 13
	ExitConfigurationErr = 14
	ExitInternalErr      = 15
)

// ExitCodeForError maps a structured error's category to its exit code.
func ExitCodeForError(err *cperrors.Error) int {
	switch err.Kind {
	case cperrors.KindParse:
		return ExitParseError
	case cperrors.KindValidation:
		return ExitValidationErr
	case cperrors.KindSandboxExceeded:
		return ExitSandboxErr
	case cperrors.KindLicense:
		return ExitLicenseErr
	case cperrors.KindConfiguration:
		return ExitConfigurationErr
	case cperrors.KindInternal:
		return ExitInternalErr
	default:
		return ExitInternalErr
	}
}
