package subsonic

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a protocol error code.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindParameter
	KindVersion
	KindAuthentication
	KindTokenAuthNotSupported
	KindClientVersionTooOld
	KindServerVersionTooOld
	KindAuthorization
	KindTrialExpired
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindVersion:
		return "version"
	case KindAuthentication:
		return "authentication"
	case KindTokenAuthNotSupported:
		return "token auth not supported"
	case KindClientVersionTooOld:
		return "client version too old"
	case KindServerVersionTooOld:
		return "server version too old"
	case KindAuthorization:
		return "authorization"
	case KindTrialExpired:
		return "trial expired"
	case KindNotFound:
		return "not found"
	default:
		return "generic"
	}
}

// Protocol error codes.
const (
	CodeGeneric               = 0
	CodeMissingParameter      = 10
	CodeClientMustUpgrade     = 20
	CodeServerMustUpgrade     = 30
	CodeWrongCredentials      = 40
	CodeTokenAuthLDAP         = 41
	CodeTokenAuthNotSupported = 42
	CodeClientTooOld          = 43
	CodeServerTooOld          = 44
	CodeUnauthorized          = 50
	CodeTrialExpired          = 60
	CodeNotFound              = 70
)

// Error is a failed Subsonic envelope.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
}

// Sentinels for use with [errors.Is]. They match any [*Error] of the same Kind.
var (
	ErrGeneric               = &Error{Kind: KindGeneric}
	ErrParameter             = &Error{Kind: KindParameter}
	ErrVersion               = &Error{Kind: KindVersion}
	ErrAuthentication        = &Error{Kind: KindAuthentication}
	ErrTokenAuthNotSupported = &Error{Kind: KindTokenAuthNotSupported}
	ErrClientVersionTooOld   = &Error{Kind: KindClientVersionTooOld}
	ErrServerVersionTooOld   = &Error{Kind: KindServerVersionTooOld}
	ErrAuthorization         = &Error{Kind: KindAuthorization}
	ErrTrialExpired          = &Error{Kind: KindTrialExpired}
	ErrNotFound              = &Error{Kind: KindNotFound}
)

// NewError maps a protocol code to its [ErrorKind]. Unknown codes become [KindGeneric] with the code preserved.
func NewError(code int, message string) *Error {
	return &Error{Kind: kindOf(code), Code: code, Message: message}
}

func kindOf(code int) ErrorKind {
	switch code {
	case CodeMissingParameter:
		return KindParameter
	case CodeClientMustUpgrade, CodeServerMustUpgrade:
		return KindVersion
	case CodeWrongCredentials, CodeTokenAuthLDAP:
		return KindAuthentication
	case CodeTokenAuthNotSupported:
		return KindTokenAuthNotSupported
	case CodeClientTooOld:
		return KindClientVersionTooOld
	case CodeServerTooOld:
		return KindServerVersionTooOld
	case CodeUnauthorized:
		return KindAuthorization
	case CodeTrialExpired:
		return KindTrialExpired
	case CodeNotFound:
		return KindNotFound
	default:
		return KindGeneric
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("subsonic %s error (code %d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("subsonic %s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the same request might succeed later without the caller changing anything.
func (e *Error) Retryable() bool {
	return e.Kind == KindGeneric
}

// HTTPError is a non-2xx response that never reached the envelope layer.
type HTTPError struct {
	StatusCode int
	Status     string
	Operation  string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %s", e.Operation, e.Status)
}

// Temporary reports whether the status is one a server typically recovers from.
func (e *HTTPError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
