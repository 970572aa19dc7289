package console

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"unicode/utf8"

	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const chunkSize = 1024

// Sink 接收解码后的输出
type Sink func(text string)

// stream 一个输出流到sink的泵
type stream struct {
	name   string
	source io.Reader
	sink   Sink
}

// ProcessConsole 读取用户程序的stdout/stderr，解码后交给对应的sink
// sink需要在Start之前设置
type ProcessConsole struct {
	name    string
	stdout  io.Reader
	stderr  io.Reader
	enc     encoding.Encoding
	log     *logrus.Entry
	onOut   Sink
	onErr   Sink
	active  int32
	wg      sync.WaitGroup
	started bool
	stopped bool
	mu      sync.Mutex
}

// New 创建console，stderr为nil时只有一个流（伪终端模式），enc为nil时按UTF-8解码
func New(name string, stdout, stderr io.Reader, enc encoding.Encoding) *ProcessConsole {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &ProcessConsole{
		name:   name,
		stdout: stdout,
		stderr: stderr,
		enc:    enc,
		log:    logrus.WithField("console", name),
	}
}

func (c *ProcessConsole) OnStdout(sink Sink) {
	c.onOut = sink
}

func (c *ProcessConsole) OnStderr(sink Sink) {
	c.onErr = sink
}

// Start 为每一个非空的流启动一个协程，重复调用无效
func (c *ProcessConsole) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	for _, s := range []*stream{
		{name: "stdout", source: c.stdout, sink: c.onOut},
		{name: "stderr", source: c.stderr, sink: c.onErr},
	} {
		if s.source == nil {
			continue
		}
		if s.sink == nil {
			s.sink = func(string) {}
		}
		c.wg.Add(1)
		atomic.AddInt32(&c.active, 1)
		s := s
		gosync.Go(context.Background(), func(ctx context.Context) {
			defer c.wg.Done()
			defer atomic.AddInt32(&c.active, -1)
			c.pump(s)
		})
	}
	c.log.Debugf("[Console] %s started with %d streams", c.name, c.ActiveStreams())
}

// pump decodes source chunk by chunk until EOF or a read error.
func (c *ProcessConsole) pump(s *stream) {
	reader := transform.NewReader(s.source, c.enc.NewDecoder())
	buf := make([]byte, chunkSize)
	var pending []byte
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			complete := completePrefix(pending)
			if complete > 0 {
				s.sink(string(pending[:complete]))
				pending = append(pending[:0], pending[complete:]...)
			}
		}
		if err != nil {
			if len(pending) > 0 {
				s.sink(string(pending))
			}
			if !isEndOfStream(err) {
				c.log.Warnf("[Console] read %s fail, err = %v", s.name, err)
			}
			return
		}
	}
}

// completePrefix returns the length of b without a trailing partial UTF-8 sequence.
func completePrefix(b []byte) int {
	end := len(b)
	// 最多回看utf8.UTFMax-1个字节
	for i := end - 1; i >= 0 && i >= end-(utf8.UTFMax-1); i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:end]) {
			return i
		}
		break
	}
	return end
}

// isEndOfStream 读到EOF、管道被关闭或者伪终端另一端关闭（EIO）都视为正常结束
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EIO)
}

// Stop 关闭读取端，让所有泵退出，可以重复调用
func (c *ProcessConsole) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	for _, r := range []io.Reader{c.stdout, c.stderr} {
		if closer, ok := r.(io.Closer); ok && closer != nil {
			if err := closer.Close(); err != nil && !isEndOfStream(err) {
				c.log.Debugf("[Console] close stream fail, err = %v", err)
			}
		}
	}
}

// Wait 阻塞直到所有泵退出
func (c *ProcessConsole) Wait() {
	c.wg.Wait()
}

// ActiveStreams returns the number of pumps still running.
func (c *ProcessConsole) ActiveStreams() int {
	return int(atomic.LoadInt32(&c.active))
}
