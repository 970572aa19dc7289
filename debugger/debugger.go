package debugger

import (
	"context"
	"errors"
	"net"
	"sync"
)

// VMLauncher
// 启动用户程序。LaunchAndConnect以调试模式启动，并等待程序上的调试代理连接回来
// Launch以非调试模式启动，不建立调试连接
type VMLauncher interface {
	LaunchAndConnect(ctx context.Context, spec *LaunchSpec) (*DebugSession, error)
	Launch(ctx context.Context, options *ProcessOptions) (Process, error)
}

// DebugSession 与被调试程序的调试连接，以及（可选的）进程句柄
// 通过runInTerminal启动时没有进程句柄
type DebugSession struct {
	conn    net.Conn
	process Process
	once    sync.Once
	err     error
}

func NewDebugSession(conn net.Conn, process Process) *DebugSession {
	return &DebugSession{
		conn:    conn,
		process: process,
	}
}

func (s *DebugSession) Conn() net.Conn {
	return s.conn
}

// Process returns nil when the debuggee was started by the client.
func (s *DebugSession) Process() Process {
	return s.process
}

// Terminate 杀死进程并关闭调试连接，可以重复调用
func (s *DebugSession) Terminate() error {
	s.once.Do(func() {
		var errs []error
		if s.process != nil {
			errs = append(errs, s.process.Kill())
		}
		if s.conn != nil {
			if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}
