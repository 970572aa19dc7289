package launcher

import (
	"fmt"
	"os"
	"strings"

	"github.com/cosiner/argv"
	"github.com/fansqz/debug-adapter/constants"
	"github.com/sirupsen/logrus"
)

const pipeToken = "|"

// BuildCommandLine 构造启动命令，address为空时不带调试代理参数
// 顺序：可执行文件 调试代理 vmArgs --module-path -cp [-m] 主类 程序参数
func BuildCommandLine(cfg *LaunchConfig, address string) []string {
	cmdline := []string{cfg.RuntimeExecutable}
	if address != "" {
		cmdline = append(cmdline, DebugAgentFlag(address))
	}
	cmdline = append(cmdline, ParseArguments(cfg.VMArgs)...)
	if len(cfg.ModulePaths) > 0 {
		cmdline = append(cmdline, constants.ModulePathFlag, strings.Join(cfg.ModulePaths, string(os.PathListSeparator)))
	}
	if len(cfg.ClassPaths) > 0 {
		cmdline = append(cmdline, constants.ClassPathFlag, strings.Join(cfg.ClassPaths, string(os.PathListSeparator)))
	}
	if len(cfg.ModulePaths) > 0 || strings.Contains(cfg.MainClass, "/") {
		cmdline = append(cmdline, constants.ModuleFlag)
	}
	cmdline = append(cmdline, cfg.MainClass)
	return append(cmdline, ParseArguments(cfg.Args)...)
}

// DebugAgentFlag 被调试程序作为客户端连接address
func DebugAgentFlag(address string) string {
	return fmt.Sprintf(constants.DebugAgentFlag, constants.DebugTransport, "n", address)
}

// NormalizeVMArgs 在末尾追加文件编码参数，已经存在的编码参数保留，以最后一个为准
func NormalizeVMArgs(vmArgs string, encodingName string) string {
	flag := constants.FileEncodingFlag + encodingName
	if strings.TrimSpace(vmArgs) == "" {
		return flag
	}
	return strings.TrimSpace(vmArgs) + " " + flag
}

func keepLiteral(s string) (string, error) {
	return s, nil
}

// ParseArguments 按shell规则切分参数，支持单双引号和反斜杠转义
// 未加引号的|作为普通参数保留，无法解析时退化为按空白切分
// $不做环境变量展开，结果只取决于输入字符串
func ParseArguments(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	sections, err := argv.Argv(s, func(quoted string) (string, error) {
		return "`" + quoted + "`", nil
	}, keepLiteral)
	if err != nil {
		logrus.Warnf("[Launch] parse arguments %q fail, split by whitespace, err = %v", s, err)
		return strings.Fields(s)
	}
	var args []string
	for i, section := range sections {
		if i > 0 {
			args = append(args, pipeToken)
		}
		args = append(args, section...)
	}
	return args
}
