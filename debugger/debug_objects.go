package debugger

import (
	"time"
)

// OutputMode 用户程序输出的接入方式
type OutputMode int

const (
	// OutputPipe stdout和stderr各自一个管道
	OutputPipe OutputMode = iota
	// OutputPty stdout和stderr共享一个伪终端
	OutputPty
	// OutputNone 不捕获输出，写入空设备
	OutputNone
)

func (m OutputMode) String() string {
	switch m {
	case OutputPipe:
		return "pipe"
	case OutputPty:
		return "pty"
	case OutputNone:
		return "none"
	}
	return "unknown"
}

// ProcessOptions 启动进程的参数
type ProcessOptions struct {
	// Args 完整的命令行，Args[0]为可执行文件
	Args []string
	Dir  string
	// Env KEY=VALUE列表，为空时继承当前进程的环境变量
	Env    []string
	Output OutputMode
}

// LaunchSpec 启动并连接被调试程序的参数
type LaunchSpec struct {
	// CommandLine 根据监听地址生成命令行
	CommandLine func(address string) []string
	Dir         string
	Env         []string
	Output      OutputMode
	// AcceptTimeout 等待被调试程序连接的时间，0表示使用launcher的默认值
	AcceptTimeout time.Duration
}
