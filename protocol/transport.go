package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
)

var ErrTransportClosed = errors.New("transport is closed")

// Transport DAP消息的读写通道，读和写可以在不同协程中并发进行
type Transport interface {
	// ReadMessage 阻塞直到读到一条完整的消息
	ReadMessage() (dap.Message, error)
	WriteMessage(message dap.Message) error
	Close() error
}

// streamTransport implements Transport over any byte stream.
type streamTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	closer io.Closer

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// NewConnTransport 基于tcp连接的Transport
func NewConnTransport(conn net.Conn) Transport {
	return newStreamTransport(conn, conn, conn)
}

// NewStdioTransport 基于标准输入输出的Transport
func NewStdioTransport(stdin io.ReadCloser, stdout io.WriteCloser) Transport {
	return newStreamTransport(stdin, stdout, closerFunc(func() error {
		return errors.Join(stdin.Close(), stdout.Close())
	}))
}

func newStreamTransport(r io.Reader, w io.Writer, c io.Closer) *streamTransport {
	return &streamTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		closer: c,
	}
}

func (t *streamTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *streamTransport) ReadMessage() (dap.Message, error) {
	if t.isClosed() {
		return nil, ErrTransportClosed
	}
	message, err := dap.ReadProtocolMessage(t.reader)
	if err != nil {
		return nil, fmt.Errorf("read DAP message: %w", err)
	}
	return message, nil
}

func (t *streamTransport) WriteMessage(message dap.Message) error {
	if t.isClosed() {
		return ErrTransportClosed
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := dap.WriteProtocolMessage(t.writer, message); err != nil {
		return fmt.Errorf("write DAP message: %w", err)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush DAP message: %w", err)
	}
	return nil
}

func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.closer.Close()
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
