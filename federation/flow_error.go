package federation

import "fmt"

// Opaque error codes surfaced to the browser as a query parameter on the
// failure redirect. The underlying cause stays in the logs; backend and
// provider diagnostics are never echoed to the user.
const (
	CodeInvalidState           = "invalid_state"
	CodeInvalidStateFormat     = "invalid_state_format"
	CodeNoCode                 = "no_code"
	CodeTokenExchangeFailed    = "token_exchange_failed"
	CodeUserInfoFailed         = "userinfo_failed"
	CodeRegistrationFailed     = "registration_failed"
	CodeLoginFailed            = "login_failed"
	CodeTokenAcquisitionFailed = "token_acquisition_failed"
	CodeOAuthFailed            = "oauth_failed"
)

// FlowError is a terminal federation failure. Every stage of the bridge
// maps its failures to one of these; no stage lets a fault escape to the
// browser unwrapped.
type FlowError struct {
	Code  string
	cause error
}

func (e *FlowError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("federation flow failed: %s", e.Code)
	}
	return fmt.Sprintf("federation flow failed: %s: %v", e.Code, e.cause)
}

func (e *FlowError) Unwrap() error {
	return e.cause
}

func flowErr(code string, cause error) *FlowError {
	return &FlowError{Code: code, cause: cause}
}

// FlowCode extracts the opaque error code from err, falling back to the
// generic oauth_failed code for unexpected faults.
func FlowCode(err error) string {
	if flowError, ok := err.(*FlowError); ok {
		return flowError.Code
	}
	return CodeOAuthFailed
}
