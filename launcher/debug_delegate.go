package launcher

import (
	"context"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/debugger"
	"github.com/fansqz/debug-adapter/handshake"
	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
)

// debugDelegate 以调试模式启动，需要建立调试连接
type debugDelegate struct {
	delegateBase
}

func newDebugDelegate(base delegateBase) *debugDelegate {
	return &debugDelegate{delegateBase: base}
}

func (d *debugDelegate) LaunchInternally(ctx context.Context, cfg *LaunchConfig, sctx *session.Context,
	response *dap.LaunchResponse) *gosync.Future[*dap.LaunchResponse] {
	result := gosync.NewFuture[*dap.LaunchResponse]()
	spec := &debugger.LaunchSpec{
		CommandLine: func(address string) []string {
			cmdline := BuildCommandLine(cfg, address)
			d.log.Infof("[Launch] launch debuggee: %v", cmdline)
			return cmdline
		},
		Dir:           cfg.Cwd,
		Env:           BuildEnvironment(cfg.Env, d.log),
		Output:        cfg.internalOutput(),
		AcceptTimeout: d.settings.AcceptTimeout,
	}
	gosync.Go(ctx, func(ctx context.Context) {
		debugSession, err := d.launcher.LaunchAndConnect(ctx, spec)
		if err != nil {
			d.log.Errorf("[Launch] launch debuggee fail, err = %v", err)
			result.Reject(launchFailure(err))
			return
		}
		sctx.SetDebugSession(debugSession)
		if process := debugSession.Process(); process != nil {
			c := d.attachConsole(cfg, process)
			d.watchExit(cfg, sctx, process, c)
		}
		d.log.Infof("[Launch] launching debuggee succeeded")
		result.Resolve(response)
	})
	return result
}

// LaunchInTerminal 先监听，再让前端在终端中启动带调试代理参数的进程，最后等待连接
// 任何一步失败都会关闭监听，之后到达的连接会被拒绝
func (d *debugDelegate) LaunchInTerminal(ctx context.Context, cfg *LaunchConfig, sctx *session.Context,
	response *dap.LaunchResponse) *gosync.Future[*dap.LaunchResponse] {
	listener, err := handshake.Open(d.settings.AcceptTimeout,
		handshake.WithGreeting(constants.HandshakeGreeting),
		handshake.WithLogger(d.log))
	if err != nil {
		return gosync.Failed[*dap.LaunchResponse](terminalFailure(err))
	}

	result := gosync.NewFuture[*dap.LaunchResponse]()
	cmdline := BuildCommandLine(cfg, listener.Address())
	d.runInTerminal(cfg, cmdline).Then(func(terminalResponse *dap.RunInTerminalResponse, err error) {
		if err != nil {
			_ = listener.Close()
			d.log.Errorf("[Launch] run in terminal fail, err = %v", err)
			result.Reject(err)
			return
		}
		conn, err := listener.Accept(ctx)
		if err != nil {
			d.log.Errorf("[Launch] accept debuggee connection fail, err = %v", err)
			result.Reject(terminalFailure(err))
			return
		}
		sctx.SetDebugSession(debugger.NewDebugSession(conn, nil))
		sctx.SetProcessID(terminalPid(terminalResponse))
		d.log.Infof("[Launch] debuggee in terminal connected, pid = %d", sctx.ProcessID())
		result.Resolve(response)
	})
	return result
}
