package debugger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/handshake"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/sirupsen/logrus"
)

var ErrExitedBeforeConnect = errors.New("debuggee exited before the debug agent connected")

// ProcessLauncher 默认的VMLauncher：先监听，再启动进程，最后等待调试代理连接
type ProcessLauncher struct {
	AcceptTimeout time.Duration
	// Greeting 连接建立后交换的握手串，为空时不交换
	Greeting string
	Log      *logrus.Entry
}

func NewProcessLauncher(acceptTimeout time.Duration) *ProcessLauncher {
	return &ProcessLauncher{
		AcceptTimeout: acceptTimeout,
		Greeting:      constants.HandshakeGreeting,
		Log:           logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (p *ProcessLauncher) Launch(ctx context.Context, options *ProcessOptions) (Process, error) {
	return StartProcess(ctx, options)
}

// LaunchAndConnect 任何一步失败都会关闭监听并杀死已经启动的进程
func (p *ProcessLauncher) LaunchAndConnect(ctx context.Context, spec *LaunchSpec) (*DebugSession, error) {
	timeout := spec.AcceptTimeout
	if timeout <= 0 {
		timeout = p.AcceptTimeout
	}
	if timeout <= 0 {
		timeout = constants.AcceptTimeout
	}
	opts := []handshake.Option{handshake.WithLogger(p.Log)}
	if p.Greeting != "" {
		opts = append(opts, handshake.WithGreeting(p.Greeting))
	}
	listener, err := handshake.Open(timeout, opts...)
	if err != nil {
		return nil, err
	}

	process, err := StartProcess(ctx, &ProcessOptions{
		Args:   spec.CommandLine(listener.Address()),
		Dir:    spec.Dir,
		Env:    spec.Env,
		Output: spec.Output,
	})
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	// 进程在连接之前退出时不必等到超时
	acceptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	gosync.Go(acceptCtx, func(ctx context.Context) {
		select {
		case <-process.Done():
			cancel(fmt.Errorf("%w (exit code %d)", ErrExitedBeforeConnect, process.Wait()))
		case <-ctx.Done():
		}
	})

	conn, err := listener.Accept(acceptCtx)
	if err != nil {
		if cause := context.Cause(acceptCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			err = cause
		}
		if killErr := process.Kill(); killErr != nil {
			p.Log.Warnf("[Launcher] kill debuggee fail, err = %v", killErr)
		}
		return nil, err
	}
	p.Log.Infof("[Launcher] debuggee pid %d connected", process.Pid())
	return NewDebugSession(conn, process), nil
}
