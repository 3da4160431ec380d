package tools

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/desertthunder/sonicsync/internal/subsonic"
)

// Error kinds reported in [ToolError.Kind] besides the Subsonic protocol kinds.
const (
	KindUnknownTool      = "unknown_tool"
	KindInvalidArguments = "invalid_arguments"
	KindHTTP             = "http"
	KindTransport        = "transport"
	KindCanceled         = "canceled"
	KindInternal         = "internal"
)

// ToolError is the structured failure returned to the model.
type ToolError struct {
	Kind      string `json:"kind"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *ToolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewToolError converts err into a [ToolError].
func NewToolError(err error) *ToolError {
	var (
		te   *ToolError
		se   *subsonic.Error
		he   *subsonic.HTTPError
		nerr net.Error
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &te):
		return te
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &ToolError{Kind: KindCanceled, Message: err.Error()}
	case errors.As(err, &se):
		return &ToolError{Kind: kindName(se.Kind), Code: se.Code, Message: se.Message, Retryable: se.Retryable()}
	case errors.As(err, &he):
		return &ToolError{Kind: KindHTTP, Code: he.StatusCode, Message: he.Error(), Retryable: he.Temporary()}
	case errors.As(err, &nerr):
		return &ToolError{Kind: KindTransport, Message: err.Error(), Retryable: true}
	default:
		return &ToolError{Kind: KindInternal, Message: err.Error()}
	}
}

func invalidArguments(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindInvalidArguments, Message: fmt.Sprintf(format, args...)}
}

// kindName renders a protocol kind as a snake_case identifier.
func kindName(k subsonic.ErrorKind) string {
	b := []byte(k.String())
	for i, c := range b {
		if c == ' ' {
			b[i] = '_'
		}
	}
	return string(b)
}

// retryable reports whether a library call is worth repeating unchanged.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return NewToolError(err).Retryable
}
