package protocol

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrDuplicateSeq    = errors.New("a request with the same seq is still pending")
	ErrCorrelatorClose = errors.New("connection to the client is closed")
)

// RequestTimeoutError 前端在超时时间内没有响应
type RequestTimeoutError struct {
	Command string
	Seq     int
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("%s request (seq %d) timed out after %s", e.Command, e.Seq, e.Timeout)
}

func (e *RequestTimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}

// Sender 把消息写给前端
type Sender interface {
	Send(message dap.Message) error
}

// pendingRequest 等待前端响应的请求
type pendingRequest struct {
	seq     int
	command string
	created time.Time
	future  *gosync.Future[dap.ResponseMessage]
	timer   *time.Timer
}

// Correlator 适配器主动发给前端的请求与响应的关联表
// 所有发往前端的消息都从同一个计数器获取seq
type Correlator struct {
	sender Sender
	log    *logrus.Entry

	mu      sync.Mutex
	seq     int
	pending map[int]*pendingRequest
	closed  error
}

func NewCorrelator(sender Sender, log *logrus.Entry) *Correlator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Correlator{
		sender:  sender,
		log:     log,
		pending: make(map[int]*pendingRequest),
	}
}

// NextSeq returns the next outgoing sequence number.
func (c *Correlator) NextSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// SendRequest 发送请求，返回的future在收到响应、超时或者发送失败时完成，且只会完成一次
func (c *Correlator) SendRequest(message dap.RequestMessage, timeout time.Duration) *gosync.Future[dap.ResponseMessage] {
	request := message.GetRequest()

	c.mu.Lock()
	if c.closed != nil {
		err := c.closed
		c.mu.Unlock()
		return gosync.Failed[dap.ResponseMessage](err)
	}
	if request.Seq == 0 {
		c.seq++
		request.Seq = c.seq
	} else if _, ok := c.pending[request.Seq]; ok {
		c.mu.Unlock()
		return gosync.Failed[dap.ResponseMessage](fmt.Errorf("%w: seq %d", ErrDuplicateSeq, request.Seq))
	}
	pr := &pendingRequest{
		seq:     request.Seq,
		command: request.Command,
		created: time.Now(),
		future:  gosync.NewFuture[dap.ResponseMessage](),
	}
	c.pending[pr.seq] = pr
	pr.timer = time.AfterFunc(timeout, func() {
		if c.remove(pr.seq, pr) {
			c.log.Warnf("[Correlator] %s request seq %d timed out after %s", pr.command, pr.seq, timeout)
			pr.future.Reject(&RequestTimeoutError{Command: pr.command, Seq: pr.seq, Timeout: timeout})
		}
	})
	c.mu.Unlock()

	if err := c.sender.Send(message); err != nil {
		if c.remove(pr.seq, pr) {
			pr.timer.Stop()
			pr.future.Reject(fmt.Errorf("send %s request: %w", pr.command, err))
		}
	}
	return pr.future
}

// HandleResponse 完成与响应匹配的请求，没有匹配（迟到或未知）的响应返回false
func (c *Correlator) HandleResponse(message dap.ResponseMessage) bool {
	response := message.GetResponse()
	c.mu.Lock()
	pr, ok := c.pending[response.RequestSeq]
	if ok {
		delete(c.pending, response.RequestSeq)
	}
	c.mu.Unlock()
	if !ok {
		c.log.Debugf("[Correlator] drop response to %s, request_seq %d is not pending", response.Command, response.RequestSeq)
		return false
	}
	pr.timer.Stop()
	c.log.Debugf("[Correlator] %s response after %s", pr.command, time.Since(pr.created))
	return pr.future.Resolve(message)
}

// Pending returns the number of requests awaiting a response.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close fails every pending request with err; later requests fail immediately.
func (c *Correlator) Close(err error) {
	if err == nil {
		err = ErrCorrelatorClose
	}
	c.mu.Lock()
	if c.closed == nil {
		c.closed = err
	}
	drained := c.pending
	c.pending = make(map[int]*pendingRequest)
	c.mu.Unlock()

	for _, pr := range drained {
		pr.timer.Stop()
		pr.future.Reject(fmt.Errorf("%s request: %w", pr.command, err))
	}
}

// remove deletes the entry only if it still belongs to pr.
func (c *Correlator) remove(seq int, pr *pendingRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.pending[seq]; ok && current == pr {
		delete(c.pending, seq)
		return true
	}
	return false
}
