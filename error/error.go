package error

import (
	"errors"
	"fmt"
)

var (
	ErrLaunchInProgress  = errors.New("a launch is already in progress or completed for this session")
	ErrSessionClosed     = errors.New("debug session is closed")
	ErrEmptyDebugSession = errors.New("empty debug session")
)

// ErrorCode 返回给前端的错误码，id在ErrorResponse.body.error.id中
type ErrorCode int

const (
	UnknownFailure          ErrorCode = 1000
	UnrecognizedRequest     ErrorCode = 1001
	LaunchFailure           ErrorCode = 1002
	ArgumentMissing         ErrorCode = 1004
	EmptyDebugSession       ErrorCode = 1011
	InvalidEncoding         ErrorCode = 1012
	LaunchInTerminalFailure ErrorCode = 1014
)

var codeNames = map[ErrorCode]string{
	UnknownFailure:          "UnknownFailure",
	UnrecognizedRequest:     "UnrecognizedRequest",
	LaunchFailure:           "LaunchFailure",
	ArgumentMissing:         "ArgumentMissing",
	EmptyDebugSession:       "EmptyDebugSession",
	InvalidEncoding:         "InvalidEncoding",
	LaunchInTerminalFailure: "LaunchInTerminalFailure",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// AdapterError 带错误码的错误，最终会被转换成ErrorResponse
type AdapterError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func NewAdapterError(code ErrorCode, cause error, format string, args ...interface{}) *AdapterError {
	return &AdapterError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func (e *AdapterError) Error() string {
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code carried by err, or UnknownFailure.
func CodeOf(err error) ErrorCode {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Code
	}
	return UnknownFailure
}
