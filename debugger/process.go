package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// UnknownExitCode 进程还未退出或者退出码未知
const UnknownExitCode = -1

// Process 被启动的用户程序
type Process interface {
	Pid() int
	// Stdout 伪终端模式下是终端的主设备，不捕获输出时为nil
	Stdout() io.ReadCloser
	// Stderr 只有管道模式下不为nil
	Stderr() io.ReadCloser
	Stdin() io.WriteCloser
	// Done 进程退出后关闭
	Done() <-chan struct{}
	// Wait 阻塞直到进程退出，返回退出码
	Wait() int
	Kill() error
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	stdin  io.WriteCloser
	// 子进程一侧的文件描述符，进程启动后在父进程中关闭
	childFiles []*os.File

	done     chan struct{}
	exitCode int
	mu       sync.Mutex
}

// StartProcess 启动进程，并在后台等待其退出
func StartProcess(ctx context.Context, options *ProcessOptions) (Process, error) {
	if len(options.Args) == 0 {
		return nil, errors.New("empty command line")
	}
	cmd := exec.Command(options.Args[0], options.Args[1:]...)
	cmd.Dir = options.Dir
	if len(options.Env) > 0 {
		cmd.Env = options.Env
	}
	p := &execProcess{
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: UnknownExitCode,
	}

	var err error
	switch options.Output {
	case OutputPty:
		err = p.startWithPty()
	case OutputNone:
		err = cmd.Start()
	default:
		err = p.startWithPipes()
	}
	if err != nil {
		p.closeStreams()
		return nil, fmt.Errorf("start %s: %w", options.Args[0], err)
	}
	for _, f := range p.childFiles {
		_ = f.Close()
	}
	logrus.Infof("[Process] started %s, pid = %d, output = %s", options.Args[0], p.Pid(), options.Output)

	gosync.Go(ctx, func(ctx context.Context) {
		p.waitExit()
	})
	return p, nil
}

// startWithPipes 使用os.Pipe而不是cmd.StdoutPipe，这样cmd.Wait不会关闭读取端，
// 进程退出后仍然可以把管道中剩余的输出读完
func (p *execProcess) startWithPipes() error {
	outR, outW, err := os.Pipe()
	if err != nil {
		return err
	}
	p.stdout = outR
	p.childFiles = append(p.childFiles, outW)

	errR, errW, err := os.Pipe()
	if err != nil {
		return err
	}
	p.stderr = errR
	p.childFiles = append(p.childFiles, errW)

	inR, inW, err := os.Pipe()
	if err != nil {
		return err
	}
	p.stdin = inW
	p.childFiles = append(p.childFiles, inR)

	p.cmd.Stdout = outW
	p.cmd.Stderr = errW
	p.cmd.Stdin = inR
	return p.cmd.Start()
}

// startWithPty 将进程的标准输入输出都接到伪终端上
func (p *execProcess) startWithPty() error {
	ptm, err := pty.Start(p.cmd)
	if err != nil {
		return err
	}
	if _, err = term.MakeRaw(int(ptm.Fd())); err != nil {
		logrus.Warnf("[Process] set raw mode fail, err = %v", err)
	}
	p.stdout = ptm
	p.stdin = ptm
	return nil
}

func (p *execProcess) waitExit() {
	err := p.cmd.Wait()
	code := UnknownExitCode
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		logrus.Warnf("[Process] wait pid %d fail, err = %v", p.Pid(), err)
	}
	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()
	logrus.Infof("[Process] pid %d exited with code %d", p.Pid(), code)
	close(p.done)
}

func (p *execProcess) closeStreams() {
	for _, c := range []io.Closer{p.stdout, p.stderr, p.stdin} {
		if c != nil {
			_ = c.Close()
		}
	}
	for _, f := range p.childFiles {
		_ = f.Close()
	}
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Stdout() io.ReadCloser {
	return p.stdout
}

func (p *execProcess) Stderr() io.ReadCloser {
	return p.stderr
}

func (p *execProcess) Stdin() io.WriteCloser {
	return p.stdin
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) Wait() int {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Kill 杀死进程，进程已经退出时不返回错误
func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.Pid(), err)
	}
	return nil
}
