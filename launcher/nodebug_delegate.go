package launcher

import (
	"context"

	"github.com/fansqz/debug-adapter/debugger"
	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
)

// noDebugDelegate 非调试模式，不带调试代理参数，也不建立调试连接
type noDebugDelegate struct {
	delegateBase
}

func newNoDebugDelegate(base delegateBase) *noDebugDelegate {
	return &noDebugDelegate{delegateBase: base}
}

func (d *noDebugDelegate) LaunchInternally(ctx context.Context, cfg *LaunchConfig, sctx *session.Context,
	response *dap.LaunchResponse) *gosync.Future[*dap.LaunchResponse] {
	result := gosync.NewFuture[*dap.LaunchResponse]()
	cmdline := BuildCommandLine(cfg, "")
	d.log.Infof("[Launch] launch without debugging: %v", cmdline)
	gosync.Go(ctx, func(ctx context.Context) {
		process, err := d.launcher.Launch(ctx, &debugger.ProcessOptions{
			Args:   cmdline,
			Dir:    cfg.Cwd,
			Env:    BuildEnvironment(cfg.Env, d.log),
			Output: cfg.internalOutput(),
		})
		if err != nil {
			d.log.Errorf("[Launch] launch debuggee fail, err = %v", err)
			result.Reject(launchFailure(err))
			return
		}
		sctx.SetProcess(process)
		c := d.attachConsole(cfg, process)
		d.watchExit(cfg, sctx, process, c)
		result.Resolve(response)
	})
	return result
}

func (d *noDebugDelegate) LaunchInTerminal(ctx context.Context, cfg *LaunchConfig, sctx *session.Context,
	response *dap.LaunchResponse) *gosync.Future[*dap.LaunchResponse] {
	result := gosync.NewFuture[*dap.LaunchResponse]()
	d.runInTerminal(cfg, BuildCommandLine(cfg, "")).Then(func(terminalResponse *dap.RunInTerminalResponse, err error) {
		if err != nil {
			d.log.Errorf("[Launch] run in terminal fail, err = %v", err)
			result.Reject(err)
			return
		}
		sctx.SetProcessID(terminalPid(terminalResponse))
		result.Resolve(response)
	})
	return result
}
