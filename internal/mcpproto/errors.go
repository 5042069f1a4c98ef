package mcpproto

// Error taxonomy kinds (spec §7). Every wire-level error response carries
// exactly one of these as its code; numeric codes are deliberately not part
// of the contract.
const (
	CodeParse              = "parse"
	CodeInvalidRequest     = "invalid-request"
	CodeMethodNotFound     = "method-not-found"
	CodeInvalidParams      = "invalid-params"
	CodeUnknownID          = "unknown-id"
	CodeWrongKind          = "wrong-kind"
	CodeInvalidValue       = "invalid-value"
	CodeNotInvokable       = "not-invokable"
	CodeAmbiguous          = "ambiguous"
	CodeOperationFailed    = "operation-failed"
	CodeConnectionClosing  = "connection-closing"
	CodeOverflow           = "overflow"
)

// NewError builds an Error with no data payload.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}
