package error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAdapterError(LaunchFailure, cause, "Failed to launch debuggee VM. Reason: %v", cause)

	assert.Equal(t, LaunchFailure, CodeOf(err))
	assert.Equal(t, LaunchFailure, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, UnknownFailure, CodeOf(cause))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Failed to launch debuggee VM. Reason: connection refused", err.Error())
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "ArgumentMissing", ArgumentMissing.String())
	assert.Equal(t, "LaunchInTerminalFailure", LaunchInTerminalFailure.String())
	assert.Equal(t, "ErrorCode(42)", ErrorCode(42).String())
}
