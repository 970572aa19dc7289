package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/google/go-dap"
)

// LaunchArguments launch请求中的arguments
type LaunchArguments struct {
	// 启动的主类，可以带模块前缀，例如 app.module/com.example.Main
	MainClass   string   `json:"mainClass"`
	ProjectName string   `json:"projectName,omitempty"`
	Args        string   `json:"args,omitempty"`
	VMArgs      string   `json:"vmArgs,omitempty"`
	ModulePaths []string `json:"modulePaths,omitempty"`
	ClassPaths  []string `json:"classPaths,omitempty"`
	// Encoding 用户程序输出的编码，空表示UTF-8
	Encoding    string                `json:"encoding,omitempty"`
	Console     constants.ConsoleType `json:"console,omitempty"`
	NoDebug     bool                  `json:"noDebug,omitempty"`
	Cwd         string                `json:"cwd,omitempty"`
	Env         map[string]string     `json:"env,omitempty"`
	StopOnEntry bool                  `json:"stopOnEntry,omitempty"`
	SourcePaths []string              `json:"sourcePaths,omitempty"`
	StepFilters *StepFilters          `json:"stepFilters,omitempty"`
	// JavaExec 指定运行时可执行文件
	JavaExec string `json:"javaExec,omitempty"`
}

// StepFilters 单步时需要跳过的代码
type StepFilters struct {
	ClassNameFilters       []string `json:"classNameFilters,omitempty"`
	SkipSynthetics         bool     `json:"skipSynthetics,omitempty"`
	SkipStaticInitializers bool     `json:"skipStaticInitializers,omitempty"`
	SkipConstructors       bool     `json:"skipConstructors,omitempty"`
}

// ParseLaunchArguments decodes the raw arguments of a launch request.
func ParseLaunchArguments(request *dap.LaunchRequest) (*LaunchArguments, error) {
	args := &LaunchArguments{}
	if len(request.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(request.Arguments, args); err != nil {
		return nil, fmt.Errorf("decode launch arguments: %w", err)
	}
	return args, nil
}

// NewRunInTerminalRequest 构造发送给前端的runInTerminal请求，seq由Correlator分配
func NewRunInTerminalRequest(kind, title, cwd string, args []string, env map[string]string) *dap.RunInTerminalRequest {
	request := &dap.RunInTerminalRequest{}
	request.Type = string(constants.RequestMessage)
	request.Command = "runInTerminal"
	request.Arguments = dap.RunInTerminalRequestArguments{
		Kind:  kind,
		Title: title,
		Cwd:   cwd,
		Args:  args,
	}
	if len(env) > 0 {
		request.Arguments.Env = make(map[string]interface{}, len(env))
		for key, value := range env {
			request.Arguments.Env[key] = value
		}
	}
	return request
}
