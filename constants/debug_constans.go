package constants

import "time"

type DebugMessageType string

const (
	RequestMessage  DebugMessageType = "request"
	ResponseMessage DebugMessageType = "response"
	EventMessage    DebugMessageType = "event"
)

// ConsoleType 用户程序输出的控制台类型
type ConsoleType string

const (
	// ConsoleNone 不捕获用户程序的输出
	ConsoleNone ConsoleType = "none"
	// InternalConsole 适配器捕获stdout/stderr，通过output事件发送给前端
	InternalConsole ConsoleType = "internalConsole"
	// IntegratedTerminal 前端的集成终端
	IntegratedTerminal ConsoleType = "integratedTerminal"
	// ExternalTerminal 前端启动的外部终端
	ExternalTerminal ConsoleType = "externalTerminal"
)

var consoleTypes = map[ConsoleType]struct{}{
	ConsoleNone:        {},
	InternalConsole:    {},
	IntegratedTerminal: {},
	ExternalTerminal:   {},
}

// IsValid reports whether c is one of the known console kinds.
func (c ConsoleType) IsValid() bool {
	_, ok := consoleTypes[c]
	return ok
}

// IsTerminal reports whether the console is a terminal owned by the front-end.
func (c ConsoleType) IsTerminal() bool {
	return c == IntegratedTerminal || c == ExternalTerminal
}

// TerminalKind returns the runInTerminal kind for the console.
func (c ConsoleType) TerminalKind() string {
	if c == ExternalTerminal {
		return TerminalKindExternal
	}
	return TerminalKindIntegrated
}

const (
	TerminalKindIntegrated = "integrated"
	TerminalKindExternal   = "external"
)

// LaunchMode 启动模式
type LaunchMode string

const (
	Debug   LaunchMode = "debug"
	NoDebug LaunchMode = "noDebug"
)

// OutputCategory output事件的类别
type OutputCategory string

const (
	StdoutCategory  OutputCategory = "stdout"
	StderrCategory  OutputCategory = "stderr"
	ConsoleCategory OutputCategory = "console"
)

// Option keys pushed into every provider during post launch.
const (
	DebuggeeEncoding = "debuggeeEncoding"
	ProjectName      = "projectName"
	MainClass        = "mainClass"
)

// Runtime command line pieces.
const (
	DefaultRuntimeExecutable = "java"
	JavaHomeEnv              = "JAVA_HOME"
	FileEncodingFlag         = "-Dfile.encoding="
	ModulePathFlag           = "--module-path"
	ClassPathFlag            = "-cp"
	ModuleFlag               = "-m"
	// DebugAgentFlag transport, server role, address
	DebugAgentFlag = "-agentlib:jdwp=transport=%s,server=%s,suspend=y,address=%s"
	DebugTransport = "dt_socket"
	// HandshakeGreeting is exchanged right after the debuggee connects.
	HandshakeGreeting = "JDWP-Handshake"
	DefaultEncoding   = "UTF-8"
)

const (
	// RunInTerminalTimeout 等待前端响应runInTerminal的时间
	RunInTerminalTimeout = 10 * time.Second
	// AcceptTimeout 等待被调试程序连接的时间
	AcceptTimeout = 10 * time.Second
	TerminalTitle = "Debuggee Console"
)
