package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/debugger"
	e "github.com/fansqz/debug-adapter/error"
	"github.com/fansqz/debug-adapter/protocol"
	"github.com/fansqz/debug-adapter/provider"
	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// Coordinator 处理launch请求：校验参数、preLaunch、选择delegate启动、postLaunch
type Coordinator struct {
	client    Client
	providers *provider.Registry
	settings  Settings
	debug     Delegate
	noDebug   Delegate
	log       *logrus.Entry
}

func NewCoordinator(client Client, launcher debugger.VMLauncher, providers *provider.Registry,
	settings Settings, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if providers == nil {
		providers = provider.NewDefaultRegistry()
	}
	settings = settings.withDefaults()
	base := delegateBase{
		launcher: launcher,
		client:   client,
		settings: settings,
		log:      log,
	}
	return &Coordinator{
		client:    client,
		providers: providers,
		settings:  settings,
		debug:     newDebugDelegate(base),
		noDebug:   newNoDebugDelegate(base),
		log:       log,
	}
}

// HandleLaunch 通过client发送launch响应或者错误响应，返回的future总是成功完成，值为发出的响应
// 成功时initialized事件在响应之前发出，进程的exited和terminated事件在响应之后发出
func (c *Coordinator) HandleLaunch(ctx context.Context, sctx *session.Context, request *dap.LaunchRequest) *gosync.Future[dap.Message] {
	result := gosync.NewFuture[dap.Message]()
	respond := func(message dap.Message) {
		if err := c.client.Send(message); err != nil {
			c.log.Warnf("[Launch] send launch response fail, err = %v", err)
		}
		result.Resolve(message)
	}
	fail := func(err error) *gosync.Future[dap.Message] {
		respond(protocol.ErrorResponseFrom(&request.Request, err))
		return result
	}

	args, err := protocol.ParseLaunchArguments(request)
	if err != nil {
		return fail(e.NewAdapterError(e.ArgumentMissing, err,
			"Failed to launch debuggee VM. Invalid launch configuration: %v", err))
	}
	cfg, err := NewLaunchConfig(args, c.settings)
	if err != nil {
		c.log.Warnf("[Launch] invalid launch configuration, err = %v", err)
		return fail(err)
	}
	if !sctx.Status().CompareAndSet(utils.Init, utils.Launching) {
		return fail(e.NewAdapterError(e.LaunchFailure, e.ErrLaunchInProgress,
			"Failed to launch debuggee VM. Reason: %v", e.ErrLaunchInProgress))
	}

	sctx.SetLaunchMode(cfg.Mode())
	delegate := c.debug
	if cfg.NoDebug {
		delegate = c.noDebug
	}
	c.preLaunch(cfg, sctx)

	var launch *gosync.Future[*dap.LaunchResponse]
	response := protocol.NewLaunchResponse(request)
	if sctx.SupportsRunInTerminal() && cfg.Console.IsTerminal() {
		launch = delegate.LaunchInTerminal(ctx, cfg, sctx, response)
	} else {
		launch = delegate.LaunchInternally(ctx, cfg, sctx, response)
	}

	launch.Then(func(response *dap.LaunchResponse, err error) {
		defer close(cfg.settled)
		if err != nil {
			sctx.Status().CompareAndSet(utils.Launching, utils.Init)
			fail(err)
			return
		}
		if err := c.postLaunch(cfg, sctx); err != nil {
			c.log.Errorf("[Launch] post launch fail, err = %v", err)
			_ = sctx.Terminate()
			if !errors.Is(err, e.ErrSessionClosed) {
				sctx.Status().Set(utils.Init)
			}
			fail(launchFailure(err))
			return
		}
		respond(response)
	})
	return result
}

// preLaunch 只修改会话上下文，不会失败
func (c *Coordinator) preLaunch(cfg *LaunchConfig, sctx *session.Context) {
	sctx.SetAttached(false)
	sctx.SetDebuggeeEncoding(cfg.Encoding, cfg.EncodingName)
	sctx.SetSourcePaths(utils.Distinct(cfg.SourcePaths))
	sctx.SetStopOnEntry(cfg.StopOnEntry)
	sctx.SetMainClass(StripModule(cfg.MainClass))
	sctx.SetStepFilters(cfg.StepFilters)
}

// postLaunch 初始化所有provider，然后通知前端可以开始发送配置请求
// 会话在launch期间被关闭时，丢弃刚刚建立的调试会话
func (c *Coordinator) postLaunch(cfg *LaunchConfig, sctx *session.Context) error {
	if !sctx.Status().CompareAndSet(utils.Launching, utils.Launched) {
		return e.ErrSessionClosed
	}
	options := map[string]interface{}{
		constants.DebuggeeEncoding: cfg.EncodingName,
		constants.ProjectName:      cfg.ProjectName,
		constants.MainClass:        sctx.MainClass(),
	}
	if err := c.providers.InitializeAll(sctx, options); err != nil {
		return fmt.Errorf("configure providers: %w", err)
	}

	c.client.SendEvent(protocol.NewProcessEvent(sctx.MainClass(), sctx.ProcessID(), "launch"))
	c.client.SendEvent(protocol.NewInitializedEvent())
	return nil
}
