package lighter

import (
	"errors"
	"fmt"
)

// ErrRejected marks a well-formed exchange response whose code denotes
// rejection. It is only produced by TxResponse.Err; the pipeline itself
// returns rejections as data.
var ErrRejected = errors.New("lighter: transaction rejected by exchange")

// ErrNoTransport is returned by submission calls on an offline client.
var ErrNoTransport = errors.New("lighter: no transport configured")

// EncodingError reports a field value outside its declared width or the
// field's permitted range.
type EncodingError struct {
	Field  string
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("lighter: encode %v: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("lighter: encode %s=%v: %s", e.Field, e.Value, e.Reason)
}

// MissingFieldError reports a field the transaction kind requires but the
// caller left unset.
type MissingFieldError struct {
	TxType TxType
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("lighter: %s requires field %s", e.TxType, e.Field)
}

// InvalidKeyError reports a zero, malformed or out-of-range signing key.
type InvalidKeyError struct {
	Reason string
	Err    error
}

func (e *InvalidKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lighter: invalid signing key: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("lighter: invalid signing key: %s", e.Reason)
}

func (e *InvalidKeyError) Unwrap() error { return e.Err }

// NonceUnavailableError is returned when no explicit nonce was supplied and
// the client has no transport to fetch one from.
type NonceUnavailableError struct {
	AccountIndex int64
	APIKeyIndex  uint8
}

func (e *NonceUnavailableError) Error() string {
	return fmt.Sprintf("lighter: no nonce for account %d key %d: no transport configured and no explicit nonce",
		e.AccountIndex, e.APIKeyIndex)
}

// TransportError covers connectivity failures and response bodies that do not
// carry the exchange envelope.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	msg := "lighter: " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 256)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsBuildError reports whether err is a local construction failure, i.e. the
// pipeline could not build the transaction and no nonce was consumed.
func IsBuildError(err error) bool {
	var (
		encErr     *EncodingError
		missingErr *MissingFieldError
		keyErr     *InvalidKeyError
	)
	return errors.As(err, &encErr) || errors.As(err, &missingErr) || errors.As(err, &keyErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
