package errors

import (
	goerrors "errors"
)

// CodeOf extracts the ErrorCode from an error, unwrapping as needed.
// Returns Unknown for errors that did not originate in this package.
func CodeOf(err error) ErrorCode {
	var e *Error
	if goerrors.As(err, &e) {
		return e.Code()
	}
	return Unknown
}

// HasCode reports whether the code CodeOf extracts from err equals code.
// Only the outermost *Error in the chain is consulted; codes of errors it
// wraps are not.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
