package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender 记录发送的消息
type recordingSender struct {
	mu       sync.Mutex
	messages []dap.Message
	err      error
}

func (s *recordingSender) Send(message dap.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) sent() []dap.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dap.Message(nil), s.messages...)
}

func newTerminalRequest() *dap.RunInTerminalRequest {
	return NewRunInTerminalRequest("integrated", "Debuggee Console", "/tmp", []string{"java", "Main"}, nil)
}

func runInTerminalResponse(requestSeq int, success bool) *dap.RunInTerminalResponse {
	response := &dap.RunInTerminalResponse{}
	response.Response = *NewResponse(requestSeq, "runInTerminal")
	response.Success = success
	response.Body.ProcessId = 4242
	return response
}

func waitResult(t *testing.T, timeout time.Duration, f *gosync.Future[dap.ResponseMessage]) (dap.ResponseMessage, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.Wait(ctx)
}

func TestCorrelatorResolvesMatchingResponse(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender, nil)

	future := c.SendRequest(newTerminalRequest(), time.Second)
	sent := sender.sent()
	require.Len(t, sent, 1)
	seq := sent[0].(*dap.RunInTerminalRequest).Seq
	assert.Equal(t, 1, seq)
	assert.Equal(t, 1, c.Pending())

	assert.True(t, c.HandleResponse(runInTerminalResponse(seq, true)))
	response, err := waitResult(t, time.Second, future)
	require.NoError(t, err)
	assert.Equal(t, 4242, response.(*dap.RunInTerminalResponse).Body.ProcessId)
	assert.Zero(t, c.Pending())
}

func TestCorrelatorTimeoutThenLateResponse(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender, nil)

	future := c.SendRequest(newTerminalRequest(), 10*time.Millisecond)
	_, err := waitResult(t, time.Second, future)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	var timeoutErr *RequestTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "runInTerminal", timeoutErr.Command)
	assert.Zero(t, c.Pending())

	// 超时之后到达的响应被忽略
	assert.False(t, c.HandleResponse(runInTerminalResponse(timeoutErr.Seq, true)))
	_, err = future.Get()
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestCorrelatorUnknownResponse(t *testing.T) {
	c := NewCorrelator(&recordingSender{}, nil)
	assert.False(t, c.HandleResponse(runInTerminalResponse(99, true)))
}

func TestCorrelatorKeepsCallerSeq(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender, nil)

	request := newTerminalRequest()
	request.Seq = 7
	first := c.SendRequest(request, time.Second)

	duplicate := newTerminalRequest()
	duplicate.Seq = 7
	_, err := c.SendRequest(duplicate, time.Second).Get()
	assert.ErrorIs(t, err, ErrDuplicateSeq)

	assert.True(t, c.HandleResponse(runInTerminalResponse(7, true)))
	_, err = first.Get()
	assert.NoError(t, err)
}

func TestCorrelatorSendFailure(t *testing.T) {
	cause := errors.New("broken pipe")
	c := NewCorrelator(&recordingSender{err: cause}, nil)

	_, err := c.SendRequest(newTerminalRequest(), time.Second).Get()
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, c.Pending())
}

func TestCorrelatorCloseDrainsPending(t *testing.T) {
	c := NewCorrelator(&recordingSender{}, nil)
	first := c.SendRequest(newTerminalRequest(), time.Minute)
	second := c.SendRequest(newTerminalRequest(), time.Minute)

	cause := errors.New("connection reset")
	c.Close(cause)

	for _, f := range []*gosync.Future[dap.ResponseMessage]{first, second} {
		_, err := f.Get()
		assert.ErrorIs(t, err, cause)
	}
	_, err := c.SendRequest(newTerminalRequest(), time.Minute).Get()
	assert.ErrorIs(t, err, cause)
}

func TestCorrelatorConcurrentSenders(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender, nil)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SendRequest(newTerminalRequest(), time.Minute)
		}()
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, message := range sender.sent() {
		seq := message.(*dap.RunInTerminalRequest).Seq
		assert.False(t, seen[seq], "seq %d assigned twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n+1, c.NextSeq())

	for seq := range seen {
		assert.True(t, c.HandleResponse(runInTerminalResponse(seq, true)))
	}
	assert.Zero(t, c.Pending())
}
