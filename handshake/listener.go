package handshake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/sirupsen/logrus"
)

var (
	ErrAcceptTimeout   = errors.New("timed out waiting for the debuggee to connect")
	ErrAlreadyAccepted = errors.New("listener has already accepted a connection")
	ErrGreetingFailed  = errors.New("debuggee replied with an unexpected greeting")
)

type Option func(l *Listener)

// WithGreeting 连接建立后写出greeting，并要求对方原样返回
func WithGreeting(greeting string) Option {
	return func(l *Listener) {
		l.greeting = []byte(greeting)
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(l *Listener) {
		l.log = log
	}
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// Listener 监听本地回环地址的临时端口，等待被调试程序连接一次
type Listener struct {
	listener net.Listener
	timeout  time.Duration
	greeting []byte
	log      *logrus.Entry

	mu        sync.Mutex
	accepting bool
	closed    bool
}

// Open binds 127.0.0.1:0. The timeout bounds Accept and starts when Accept is called.
func Open(timeout time.Duration, opts ...Option) (*Listener, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for debuggee connection: %w", err)
	}
	l := &Listener{
		listener: listener,
		timeout:  timeout,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log.Debugf("[Handshake] listening at %s", l.Address())
	return l, nil
}

// Address host:port the debuggee should dial.
func (l *Listener) Address() string {
	return l.listener.Addr().String()
}

// Accept 等待一个连接，超时、ctx取消或者对方greeting错误都会返回error
// 无论成功与否，listener都会被关闭
func (l *Listener) Accept(ctx context.Context) (net.Conn, error) {
	l.mu.Lock()
	if l.accepting {
		l.mu.Unlock()
		return nil, ErrAlreadyAccepted
	}
	if l.closed {
		l.mu.Unlock()
		return nil, fmt.Errorf("accept debuggee connection: %w", net.ErrClosed)
	}
	l.accepting = true
	l.mu.Unlock()
	defer l.Close()

	deadline := time.Now().Add(l.timeout)
	resultCh := make(chan acceptResult, 1)
	gosync.Go(ctx, func(ctx context.Context) {
		conn, err := l.listener.Accept()
		resultCh <- acceptResult{conn, err}
	})

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var conn net.Conn
	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, fmt.Errorf("accept debuggee connection: %w", r.err)
		}
		conn = r.conn
	case <-timer.C:
		l.discard(resultCh)
		return nil, fmt.Errorf("%w after %s", ErrAcceptTimeout, l.timeout)
	case <-ctx.Done():
		l.discard(resultCh)
		return nil, ctx.Err()
	}
	l.log.Infof("[Handshake] debuggee connected from %s", conn.RemoteAddr())

	if len(l.greeting) > 0 {
		if err := l.exchangeGreeting(conn, deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// exchangeGreeting writes the greeting and expects it echoed back before the deadline.
func (l *Listener) exchangeGreeting(conn net.Conn, deadline time.Time) error {
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set handshake deadline: %w", err)
	}
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write(l.greeting); err != nil {
		return fmt.Errorf("write handshake greeting: %w", err)
	}
	reply := make([]byte, len(l.greeting))
	if _, err := io.ReadFull(conn, reply); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w while reading handshake greeting", ErrAcceptTimeout)
		}
		return fmt.Errorf("read handshake greeting: %w", err)
	}
	if !bytes.Equal(reply, l.greeting) {
		return fmt.Errorf("%w: %q", ErrGreetingFailed, reply)
	}
	return nil
}

// discard closes the listener and drops a connection that raced with it.
func (l *Listener) discard(resultCh <-chan acceptResult) {
	_ = l.Close()
	gosync.Go(context.Background(), func(ctx context.Context) {
		if r := <-resultCh; r.conn != nil {
			_ = r.conn.Close()
		}
	})
}

// Close 关闭监听，可以重复调用
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.listener.Close()
}
