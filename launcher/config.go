package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/debugger"
	e "github.com/fansqz/debug-adapter/error"
	"github.com/fansqz/debug-adapter/protocol"
	"github.com/fansqz/debug-adapter/session"
	"github.com/fansqz/debug-adapter/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Settings adapter级别的启动参数，来自配置文件
type Settings struct {
	// RuntimeExecutable 运行时可执行文件，launch参数中的javaExec优先
	RuntimeExecutable    string
	JavaHome             string
	RunInTerminalTimeout time.Duration
	AcceptTimeout        time.Duration
	TerminalTitle        string
}

func DefaultSettings() Settings {
	return Settings{
		RunInTerminalTimeout: constants.RunInTerminalTimeout,
		AcceptTimeout:        constants.AcceptTimeout,
		TerminalTitle:        constants.TerminalTitle,
	}
}

func (s Settings) withDefaults() Settings {
	if s.RunInTerminalTimeout <= 0 {
		s.RunInTerminalTimeout = constants.RunInTerminalTimeout
	}
	if s.AcceptTimeout <= 0 {
		s.AcceptTimeout = constants.AcceptTimeout
	}
	if s.TerminalTitle == "" {
		s.TerminalTitle = constants.TerminalTitle
	}
	return s
}

// LaunchConfig 校验和规范化之后的launch参数，创建之后不再修改
type LaunchConfig struct {
	MainClass         string
	ProjectName       string
	ModulePaths       []string
	ClassPaths        []string
	Args              string
	VMArgs            string
	Cwd               string
	Env               map[string]string
	Encoding          encoding.Encoding
	EncodingName      string
	Console           constants.ConsoleType
	NoDebug           bool
	StopOnEntry       bool
	SourcePaths       []string
	StepFilters       *session.StepFilters
	RuntimeExecutable string

	// settled 在launch响应发出之后关闭，进程的退出事件要等它
	settled chan struct{}
}

// NewLaunchConfig 按顺序校验：主类和搜索路径、编码，然后规范化vmArgs
// 校验失败时不产生任何副作用
func NewLaunchConfig(args *protocol.LaunchArguments, settings Settings) (*LaunchConfig, error) {
	modulePaths := utils.Distinct(args.ModulePaths)
	classPaths := utils.Distinct(args.ClassPaths)
	if strings.TrimSpace(args.MainClass) == "" || (len(modulePaths) == 0 && len(classPaths) == 0) {
		return nil, e.NewAdapterError(e.ArgumentMissing, nil,
			"Failed to launch debuggee VM. Missing mainClass or modulePaths/classPaths options in launch configuration.")
	}

	enc, encName := encoding.Encoding(unicode.UTF8), constants.DefaultEncoding
	if strings.TrimSpace(args.Encoding) != "" {
		var err error
		enc, encName, err = LookupEncoding(args.Encoding)
		if err != nil {
			return nil, e.NewAdapterError(e.InvalidEncoding, err,
				"Failed to launch debuggee VM. 'encoding' options in the launch configuration is not recognized.")
		}
	}

	console := args.Console
	if console == "" {
		console = constants.InternalConsole
	} else if !console.IsValid() {
		logrus.Warnf("[Launch] unknown console %q, use %s", console, constants.InternalConsole)
		console = constants.InternalConsole
	}

	cfg := &LaunchConfig{
		MainClass:         strings.TrimSpace(args.MainClass),
		ProjectName:       args.ProjectName,
		ModulePaths:       modulePaths,
		ClassPaths:        classPaths,
		Args:              args.Args,
		VMArgs:            NormalizeVMArgs(args.VMArgs, encName),
		Cwd:               args.Cwd,
		Env:               args.Env,
		Encoding:          enc,
		EncodingName:      encName,
		Console:           console,
		NoDebug:           args.NoDebug,
		StopOnEntry:       args.StopOnEntry,
		SourcePaths:       utils.Distinct(args.SourcePaths),
		RuntimeExecutable: resolveRuntimeExecutable(args.JavaExec, settings),
		settled:           make(chan struct{}),
	}
	if f := args.StepFilters; f != nil {
		cfg.StepFilters = &session.StepFilters{
			ClassNameFilters:       utils.Distinct(f.ClassNameFilters),
			SkipSynthetics:         f.SkipSynthetics,
			SkipStaticInitializers: f.SkipStaticInitializers,
			SkipConstructors:       f.SkipConstructors,
		}
	}
	return cfg, nil
}

// LookupEncoding 按IANA名称或别名查找编码，返回编码和规范名称
func LookupEncoding(name string) (encoding.Encoding, string, error) {
	enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(name))
	if err != nil {
		return nil, "", err
	}
	if enc == nil {
		return nil, "", fmt.Errorf("encoding %q is not supported", name)
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil || canonical == "" {
		canonical = strings.ToUpper(strings.TrimSpace(name))
	}
	return enc, canonical, nil
}

// resolveRuntimeExecutable javaExec > 配置文件 > $JAVA_HOME/bin/java > java
func resolveRuntimeExecutable(javaExec string, settings Settings) string {
	if javaExec = strings.TrimSpace(javaExec); javaExec != "" {
		return javaExec
	}
	if settings.RuntimeExecutable != "" {
		return settings.RuntimeExecutable
	}
	javaHome := settings.JavaHome
	if javaHome == "" {
		javaHome = os.Getenv(constants.JavaHomeEnv)
	}
	if javaHome != "" {
		return filepath.Join(javaHome, "bin", constants.DefaultRuntimeExecutable)
	}
	return constants.DefaultRuntimeExecutable
}

// Mode 调试或者非调试
func (c *LaunchConfig) Mode() constants.LaunchMode {
	if c.NoDebug {
		return constants.NoDebug
	}
	return constants.Debug
}

// internalOutput 由adapter直接启动进程时输出的接入方式
func (c *LaunchConfig) internalOutput() debugger.OutputMode {
	switch {
	case c.Console == constants.ConsoleNone:
		return debugger.OutputNone
	case c.Console.IsTerminal():
		// 前端不支持runInTerminal，用伪终端代替
		return debugger.OutputPty
	default:
		return debugger.OutputPipe
	}
}

// StripModule 去掉主类的模块前缀：app.module/com.example.Main -> com.example.Main
func StripModule(mainClass string) string {
	if i := strings.LastIndex(mainClass, "/"); i >= 0 {
		return mainClass[i+1:]
	}
	return mainClass
}
