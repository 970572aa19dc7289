package protocol

import (
	"github.com/fansqz/debug-adapter/constants"
	"github.com/google/go-dap"
)

func NewEvent(event string) *dap.Event {
	return &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: string(constants.EventMessage),
		},
		Event: event,
	}
}

// NewOutputEvent 用户程序输出或者适配器提示
func NewOutputEvent(category constants.OutputCategory, output string) *dap.OutputEvent {
	return &dap.OutputEvent{
		Event: *NewEvent("output"),
		Body: dap.OutputEventBody{
			Category: string(category),
			Output:   output,
		},
	}
}

// NewInitializedEvent 前端收到该事件后开始发送断点等配置请求
func NewInitializedEvent() *dap.InitializedEvent {
	return &dap.InitializedEvent{Event: *NewEvent("initialized")}
}

// NewProcessEvent 被调试程序已启动，pid未知时为0
func NewProcessEvent(name string, pid int, startMethod string) *dap.ProcessEvent {
	return &dap.ProcessEvent{
		Event: *NewEvent("process"),
		Body: dap.ProcessEventBody{
			Name:            name,
			SystemProcessId: pid,
			IsLocalProcess:  true,
			StartMethod:     startMethod,
		},
	}
}

// NewExitedEvent 被调试程序已经退出，但调试会话不一定结束
func NewExitedEvent(exitCode int) *dap.ExitedEvent {
	return &dap.ExitedEvent{
		Event: *NewEvent("exited"),
		Body:  dap.ExitedEventBody{ExitCode: exitCode},
	}
}

func NewTerminatedEvent() *dap.TerminatedEvent {
	return &dap.TerminatedEvent{Event: *NewEvent("terminated")}
}
