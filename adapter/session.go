package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/debugger"
	e "github.com/fansqz/debug-adapter/error"
	"github.com/fansqz/debug-adapter/launcher"
	"github.com/fansqz/debug-adapter/protocol"
	"github.com/fansqz/debug-adapter/provider"
	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/chanx"
)

// sendQueueCapacity 发送队列的初始容量，队列本身不限长度
const sendQueueCapacity = 64

// Options 创建Session所需的依赖
type Options struct {
	Launcher  debugger.VMLauncher
	Providers *provider.Registry
	Settings  launcher.Settings
	Log       *logrus.Entry
}

// Session 一个前端连接对应一个Session
type Session struct {
	transport   protocol.Transport
	sctx        *session.Context
	correlator  *protocol.Correlator
	coordinator *launcher.Coordinator
	log         *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	// sendQueue 多个协程产生的消息经过这个队列，由writer协程统一写出，
	// 保证消息不会交错，也不会因为前端读得慢而阻塞处理协程
	sendQueue *chanx.UnboundedChan[dap.Message]
	writerWg  sync.WaitGroup

	closeOnce   sync.Once
	closingOnce sync.Once
	closing     chan struct{}
}

func NewSession(transport protocol.Transport, opts Options) *Session {
	sctx := session.NewContext()
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("session", sctx.ID())
	launcherImpl := opts.Launcher
	if launcherImpl == nil {
		processLauncher := debugger.NewProcessLauncher(opts.Settings.AcceptTimeout)
		processLauncher.Log = log
		launcherImpl = processLauncher
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transport: transport,
		sctx:      sctx,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		sendQueue: chanx.NewUnboundedChan[dap.Message](ctx, sendQueueCapacity),
		closing:   make(chan struct{}),
	}
	s.correlator = protocol.NewCorrelator(s, log)
	s.coordinator = launcher.NewCoordinator(s, launcherImpl, opts.Providers, opts.Settings, log)
	return s
}

// Context 会话上下文
func (s *Session) Context() *session.Context {
	return s.sctx
}

// Serve 读取并分发前端消息，直到连接断开或者会话被关闭
func (s *Session) Serve() error {
	s.writerWg.Add(1)
	gosync.Go(s.ctx, func(ctx context.Context) {
		defer s.writerWg.Done()
		s.sendFromQueue(ctx)
	})
	defer s.Close()

	s.log.Infof("[Session] start serving")
	for {
		message, err := s.transport.ReadMessage()
		if err != nil {
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(err, &fieldErr) {
				s.onDecodeError(fieldErr)
				continue
			}
			if s.isClosing() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) ||
				errors.Is(err, protocol.ErrTransportClosed) {
				s.log.Infof("[Session] connection closed")
				return nil
			}
			s.log.Errorf("[Session] read message fail, err = %v", err)
			return err
		}
		s.dispatch(message)
	}
}

// Close 结束调试会话并关闭连接，可以重复调用
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.markClosing()
		s.correlator.Close(e.ErrSessionClosed)
		if err := s.sctx.Terminate(); err != nil {
			s.log.Warnf("[Session] terminate debuggee fail, err = %v", err)
		}
		s.cancel()
		s.writerWg.Wait()
		_ = s.transport.Close()
	})
}

func (s *Session) markClosing() {
	s.closingOnce.Do(func() {
		close(s.closing)
	})
}

func (s *Session) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// Send 把消息放入发送队列，实现protocol.Sender
func (s *Session) Send(message dap.Message) error {
	select {
	case <-s.ctx.Done():
		return e.ErrSessionClosed
	default:
	}
	select {
	case s.sendQueue.In <- message:
		return nil
	case <-s.ctx.Done():
		return e.ErrSessionClosed
	}
}

// SendEvent 实现launcher.Client
func (s *Session) SendEvent(event dap.EventMessage) {
	if err := s.Send(event); err != nil {
		s.log.Debugf("[Session] drop %s event, err = %v", event.GetEvent().Event, err)
	}
}

// SendRequest 发送由adapter发起的请求，实现launcher.Client
func (s *Session) SendRequest(request dap.RequestMessage, timeout time.Duration) *gosync.Future[dap.ResponseMessage] {
	return s.correlator.SendRequest(request, timeout)
}

// sendFromQueue 唯一的写协程，没有序号的消息在这里分配序号
func (s *Session) sendFromQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-s.sendQueue.Out:
			if !ok {
				return
			}
			if message.GetSeq() == 0 {
				setSeq(message, s.correlator.NextSeq())
			}
			if err := s.transport.WriteMessage(message); err != nil {
				s.log.Errorf("[Session] write message fail, err = %v", err)
				s.correlator.Close(err)
				return
			}
			if s.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
				data, _ := json.Marshal(message)
				s.log.Debugf("[-> to client] %s", data)
			}
			if _, ok := message.(*dap.DisconnectResponse); ok {
				// 断开响应写出之后关闭连接，读协程随之退出
				s.markClosing()
				_ = s.transport.Close()
				return
			}
		}
	}
}

func setSeq(message dap.Message, seq int) {
	switch m := message.(type) {
	case dap.RequestMessage:
		m.GetRequest().Seq = seq
	case dap.ResponseMessage:
		m.GetResponse().Seq = seq
	case dap.EventMessage:
		m.GetEvent().Seq = seq
	}
}

func (s *Session) dispatch(message dap.Message) {
	defer func() {
		// handler中的panic转换成错误响应
		if ierr := recover(); ierr != nil {
			s.log.Errorf("[Session] handle message panic: %v", ierr)
			if request, ok := message.(dap.RequestMessage); ok {
				s.sendError(request.GetRequest(), e.NewAdapterError(e.UnknownFailure, nil, "Internal Error: %v", ierr))
			}
		}
	}()

	if s.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		data, _ := json.Marshal(message)
		s.log.Debugf("[<- from client] %s", data)
	}

	switch m := message.(type) {
	case *dap.InitializeRequest:
		s.onInitializeRequest(m)
	case *dap.LaunchRequest:
		s.onLaunchRequest(m)
	case *dap.ConfigurationDoneRequest:
		s.onConfigurationDoneRequest(m)
	case *dap.ThreadsRequest:
		s.onThreadsRequest(m)
	case *dap.DisconnectRequest:
		s.onDisconnectRequest(m)
	case *dap.TerminateRequest:
		s.onTerminateRequest(m)
	case dap.ResponseMessage:
		if !s.correlator.HandleResponse(m) {
			response := m.GetResponse()
			s.log.Warnf("[Session] drop unexpected %s response, request seq = %d", response.Command, response.RequestSeq)
		}
	case dap.RequestMessage:
		request := m.GetRequest()
		s.sendError(request, e.NewAdapterError(e.UnrecognizedRequest, nil, "%s is not yet supported", request.Command))
	default:
		s.log.Warnf("[Session] unable to process %#v", message)
	}
}

// onDecodeError go-dap不认识的请求也需要给出响应
func (s *Session) onDecodeError(err *dap.DecodeProtocolMessageFieldError) {
	s.log.Warnf("[Session] decode message fail, err = %v", err)
	if err.SubType == "request" && err.FieldName == "command" {
		request := &dap.Request{Command: err.FieldValue}
		request.Seq = err.Seq
		s.sendError(request, e.NewAdapterError(e.UnrecognizedRequest, nil, "%s is not yet supported", err.FieldValue))
	}
}

func (s *Session) sendError(request *dap.Request, err error) {
	_ = s.Send(protocol.ErrorResponseFrom(request, err))
}

func (s *Session) onInitializeRequest(request *dap.InitializeRequest) {
	s.sctx.SetSupportsRunInTerminal(request.Arguments.SupportsRunInTerminalRequest)
	response := &dap.InitializeResponse{}
	response.Response = *protocol.NewResponse(request.Seq, request.Command)
	response.Body.SupportsConfigurationDoneRequest = true
	response.Body.SupportsTerminateRequest = true
	response.Body.SupportTerminateDebuggee = true
	response.Body.ExceptionBreakpointFilters = []dap.ExceptionBreakpointsFilter{}
	_ = s.Send(response)
}

// onLaunchRequest launch是异步的，响应由coordinator在启动完成之后发送
func (s *Session) onLaunchRequest(request *dap.LaunchRequest) {
	s.coordinator.HandleLaunch(s.ctx, s.sctx, request).Then(func(message dap.Message, err error) {
		if response, ok := message.(*dap.ErrorResponse); ok && response.Body.Error != nil {
			s.log.Warnf("[Session] launch fail, err = %s", response.Body.Error.Format)
		}
	})
}

func (s *Session) onConfigurationDoneRequest(request *dap.ConfigurationDoneRequest) {
	if s.sctx.LaunchMode() == constants.Debug && s.sctx.DebugSession() == nil {
		s.sendError(&request.Request, e.NewAdapterError(e.EmptyDebugSession, e.ErrEmptyDebugSession,
			"Failed to launch debug session, the debugger will exit."))
		return
	}
	response := &dap.ConfigurationDoneResponse{}
	response.Response = *protocol.NewResponse(request.Seq, request.Command)
	_ = s.Send(response)
}

func (s *Session) onThreadsRequest(request *dap.ThreadsRequest) {
	response := &dap.ThreadsResponse{}
	response.Response = *protocol.NewResponse(request.Seq, request.Command)
	response.Body.Threads = []dap.Thread{}
	_ = s.Send(response)
}

func (s *Session) onDisconnectRequest(request *dap.DisconnectRequest) {
	s.terminate()
	response := &dap.DisconnectResponse{}
	response.Response = *protocol.NewResponse(request.Seq, request.Command)
	_ = s.Send(response)
}

// onTerminateRequest 结束被调试程序，由adapter启动的进程退出时会发送terminated事件
func (s *Session) onTerminateRequest(request *dap.TerminateRequest) {
	watched := s.sctx.Process() != nil
	s.terminate()
	response := &dap.TerminateResponse{}
	response.Response = *protocol.NewResponse(request.Seq, request.Command)
	_ = s.Send(response)
	if !watched {
		s.SendEvent(protocol.NewTerminatedEvent())
	}
}

func (s *Session) terminate() {
	if err := s.sctx.Terminate(); err != nil {
		s.log.Warnf("[Session] terminate debuggee fail, err = %v", err)
		s.SendEvent(protocol.NewOutputEvent(constants.ConsoleCategory, fmt.Sprintf("Failed to terminate debuggee: %v\n", err)))
	}
}
