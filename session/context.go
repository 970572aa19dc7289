package session

import (
	"sync"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/debugger"
	"github.com/fansqz/debug-adapter/utils"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// StepFilters 单步时跳过的类和方法
type StepFilters struct {
	ClassNameFilters       []string
	SkipSynthetics         bool
	SkipStaticInitializers bool
	SkipConstructors       bool
}

// Context 一个前端连接对应的调试上下文，被请求处理协程和launch协程并发访问
type Context struct {
	id     string
	status *utils.StatusManager

	mu                    sync.RWMutex
	attached              bool
	encoding              encoding.Encoding
	encodingName          string
	launchMode            constants.LaunchMode
	mainClass             string
	sourcePaths           []string
	stepFilters           *StepFilters
	stopOnEntry           bool
	supportsRunInTerminal bool
	debugSession          *debugger.DebugSession
	process               debugger.Process
	processID             int
}

func NewContext() *Context {
	return &Context{
		id:           utils.GetUUID(),
		status:       utils.NewStatusManager(),
		encoding:     unicode.UTF8,
		encodingName: constants.DefaultEncoding,
		launchMode:   constants.Debug,
	}
}

func (c *Context) ID() string {
	return c.id
}

// Status 会话生命周期状态
func (c *Context) Status() *utils.StatusManager {
	return c.status
}

func (c *Context) SetAttached(attached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = attached
}

func (c *Context) IsAttached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attached
}

func (c *Context) SetDebuggeeEncoding(enc encoding.Encoding, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encoding = enc
	c.encodingName = name
}

func (c *Context) DebuggeeEncoding() (encoding.Encoding, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encoding, c.encodingName
}

func (c *Context) SetLaunchMode(mode constants.LaunchMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launchMode = mode
}

func (c *Context) LaunchMode() constants.LaunchMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.launchMode
}

func (c *Context) SetMainClass(mainClass string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mainClass = mainClass
}

func (c *Context) MainClass() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mainClass
}

func (c *Context) SetSourcePaths(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourcePaths = append([]string(nil), paths...)
}

func (c *Context) SourcePaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.sourcePaths...)
}

func (c *Context) SetStepFilters(filters *StepFilters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepFilters = filters
}

// StepFilters returns nil when no filters were configured.
func (c *Context) StepFilters() *StepFilters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stepFilters
}

func (c *Context) SetStopOnEntry(stop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopOnEntry = stop
}

func (c *Context) StopOnEntry() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopOnEntry
}

// SetSupportsRunInTerminal 记录前端在initialize中声明的能力
func (c *Context) SetSupportsRunInTerminal(supported bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supportsRunInTerminal = supported
}

func (c *Context) SupportsRunInTerminal() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsRunInTerminal
}

func (c *Context) SetDebugSession(s *debugger.DebugSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugSession = s
	if s != nil && s.Process() != nil {
		c.process = s.Process()
		c.processID = s.Process().Pid()
	}
}

func (c *Context) DebugSession() *debugger.DebugSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debugSession
}

// SetProcess 非调试模式下只有进程，没有调试连接
func (c *Context) SetProcess(p debugger.Process) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.process = p
	if p != nil {
		c.processID = p.Pid()
	}
}

func (c *Context) Process() debugger.Process {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.process
}

func (c *Context) SetProcessID(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processID = pid
}

// ProcessID 0表示未知
func (c *Context) ProcessID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processID
}

// Terminate 结束调试会话以及进程，可以重复调用
func (c *Context) Terminate() error {
	c.mu.Lock()
	s, p := c.debugSession, c.process
	c.mu.Unlock()
	c.status.Set(utils.Finish)
	if s != nil {
		return s.Terminate()
	}
	if p != nil {
		return p.Kill()
	}
	return nil
}
