package launcher

import (
	"context"
	"time"

	"github.com/fansqz/debug-adapter/console"
	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/debugger"
	e "github.com/fansqz/debug-adapter/error"
	"github.com/fansqz/debug-adapter/protocol"
	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// consoleDrainTimeout 进程退出后等待剩余输出的时间
const consoleDrainTimeout = 2 * time.Second

// Client 前端连接，由adapter的会话实现
type Client interface {
	Send(message dap.Message) error
	SendEvent(event dap.EventMessage)
	SendRequest(request dap.RequestMessage, timeout time.Duration) *gosync.Future[dap.ResponseMessage]
}

// Delegate 启动用户程序，调试模式和非调试模式各有一个实现
type Delegate interface {
	// LaunchInternally 由adapter直接启动进程
	LaunchInternally(ctx context.Context, cfg *LaunchConfig, sctx *session.Context, response *dap.LaunchResponse) *gosync.Future[*dap.LaunchResponse]
	// LaunchInTerminal 通过runInTerminal请求让前端在终端中启动进程
	LaunchInTerminal(ctx context.Context, cfg *LaunchConfig, sctx *session.Context, response *dap.LaunchResponse) *gosync.Future[*dap.LaunchResponse]
}

// delegateBase 两个delegate共用的部分
type delegateBase struct {
	launcher debugger.VMLauncher
	client   Client
	settings Settings
	log      *logrus.Entry
}

// attachConsole 把进程的输出转成output事件，没有捕获输出时返回nil
func (d *delegateBase) attachConsole(cfg *LaunchConfig, process debugger.Process) *console.ProcessConsole {
	if process.Stdout() == nil && process.Stderr() == nil {
		return nil
	}
	c := console.New(cfg.MainClass, process.Stdout(), process.Stderr(), cfg.Encoding)
	c.OnStdout(func(text string) {
		d.client.SendEvent(protocol.NewOutputEvent(constants.StdoutCategory, text))
	})
	c.OnStderr(func(text string) {
		d.client.SendEvent(protocol.NewOutputEvent(constants.StderrCategory, text))
	})
	c.Start()
	return c
}

// watchExit 进程退出后等待输出读完，然后发送exited和terminated事件
// 事件在launch响应之后发出，即使进程在launch完成前就已经退出
func (d *delegateBase) watchExit(cfg *LaunchConfig, sctx *session.Context, process debugger.Process, c *console.ProcessConsole) {
	gosync.Go(context.Background(), func(ctx context.Context) {
		code := process.Wait()
		if c != nil {
			drained := make(chan struct{})
			gosync.Go(ctx, func(ctx context.Context) {
				c.Wait()
				close(drained)
			})
			select {
			case <-drained:
			case <-time.After(consoleDrainTimeout):
				d.log.Warnf("[Launch] output of pid %d not drained in %s", process.Pid(), consoleDrainTimeout)
			}
			c.Stop()
		}
		if stdin := process.Stdin(); stdin != nil {
			_ = stdin.Close()
		}
		if s := sctx.DebugSession(); s != nil && s.Process() == process {
			_ = s.Terminate()
		}
		d.log.Infof("[Launch] debuggee exited with code %d", code)
		<-cfg.settled
		d.client.SendEvent(protocol.NewExitedEvent(code))
		d.client.SendEvent(protocol.NewTerminatedEvent())
	})
}

// runInTerminal 发送runInTerminal请求，失败统一转换为LaunchInTerminalFailure
func (d *delegateBase) runInTerminal(cfg *LaunchConfig, cmdline []string) *gosync.Future[*dap.RunInTerminalResponse] {
	result := gosync.NewFuture[*dap.RunInTerminalResponse]()
	request := protocol.NewRunInTerminalRequest(cfg.Console.TerminalKind(), d.settings.TerminalTitle, cfg.Cwd, cmdline, cfg.Env)
	d.log.Infof("[Launch] run in %s terminal: %v", cfg.Console.TerminalKind(), cmdline)
	d.client.SendRequest(request, d.settings.RunInTerminalTimeout).Then(func(message dap.ResponseMessage, err error) {
		if err != nil {
			result.Reject(terminalFailure(err))
			return
		}
		response := message.GetResponse()
		if !response.Success {
			reason := protocol.ResponseError(response, message)
			result.Reject(e.NewAdapterError(e.LaunchInTerminalFailure, nil,
				"Failed to launch debuggee in terminal. Reason: %s", reason))
			return
		}
		terminalResponse, ok := message.(*dap.RunInTerminalResponse)
		if !ok {
			terminalResponse = &dap.RunInTerminalResponse{Response: *response}
		}
		result.Resolve(terminalResponse)
	})
	return result
}

// terminalPid 优先使用进程id，没有时使用shell的进程id
func terminalPid(response *dap.RunInTerminalResponse) int {
	if response.Body.ProcessId != 0 {
		return response.Body.ProcessId
	}
	return response.Body.ShellProcessId
}

func terminalFailure(err error) error {
	return e.NewAdapterError(e.LaunchInTerminalFailure, err, "Failed to launch debuggee in terminal. Reason: %v", err)
}

func launchFailure(err error) error {
	return e.NewAdapterError(e.LaunchFailure, err, "Failed to launch debuggee VM. Reason: %v", err)
}
