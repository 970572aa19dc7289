package debugger

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/handshake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperCommand 以当前测试二进制作为被调试程序
func helperCommand(args ...string) []string {
	return append([]string{os.Args[0], "-test.run=TestHelperProcess", "--"}, args...)
}

func helperEnv() []string {
	return append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
}

// TestHelperProcess isn't a real test. It plays the debuggee.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	switch args[1] {
	case "agent":
		conn, err := net.Dial("tcp", args[2])
		if err != nil {
			os.Exit(3)
		}
		greeting := make([]byte, len(constants.HandshakeGreeting))
		if _, err := io.ReadFull(conn, greeting); err != nil {
			os.Exit(4)
		}
		_, _ = conn.Write(greeting)
		fmt.Fprintln(os.Stdout, "hello from debuggee")
		fmt.Fprintln(os.Stderr, "warning from debuggee")
		_, _ = io.Copy(io.Discard, conn)
		os.Exit(0)
	case "print":
		fmt.Fprintln(os.Stdout, strings.Join(args[2:], " "))
		os.Exit(0)
	case "exit":
		code, _ := strconv.Atoi(args[2])
		os.Exit(code)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func TestStartProcessWithPipes(t *testing.T) {
	p, err := StartProcess(context.Background(), &ProcessOptions{
		Args:   helperCommand("print", "hello", "world"),
		Env:    helperEnv(),
		Output: OutputPipe,
	})
	require.NoError(t, err)
	require.NotNil(t, p.Stdout())
	require.NotNil(t, p.Stderr())
	assert.Greater(t, p.Pid(), 0)

	out, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(out))
	assert.Equal(t, 0, p.Wait())
	assert.NoError(t, p.Kill())
}

func TestStartProcessExitCode(t *testing.T) {
	p, err := StartProcess(context.Background(), &ProcessOptions{
		Args:   helperCommand("exit", "3"),
		Env:    helperEnv(),
		Output: OutputNone,
	})
	require.NoError(t, err)
	assert.Nil(t, p.Stdout())
	assert.Equal(t, 3, p.Wait())
}

func TestStartProcessMissingExecutable(t *testing.T) {
	_, err := StartProcess(context.Background(), &ProcessOptions{
		Args: []string{"/nonexistent/java"},
	})
	assert.Error(t, err)

	_, err = StartProcess(context.Background(), &ProcessOptions{})
	assert.Error(t, err)
}

func TestLaunchAndConnect(t *testing.T) {
	launcher := NewProcessLauncher(5 * time.Second)
	session, err := launcher.LaunchAndConnect(context.Background(), &LaunchSpec{
		CommandLine: func(address string) []string {
			return helperCommand("agent", address)
		},
		Env:    helperEnv(),
		Output: OutputPipe,
	})
	require.NoError(t, err)
	require.NotNil(t, session.Conn())
	require.NotNil(t, session.Process())

	out := make([]byte, len("hello from debuggee\n"))
	_, err = io.ReadFull(session.Process().Stdout(), out)
	require.NoError(t, err)
	assert.Equal(t, "hello from debuggee\n", string(out))

	require.NoError(t, session.Terminate())
	require.NoError(t, session.Terminate())
	select {
	case <-session.Process().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("debuggee still running after Terminate")
	}
}

func TestLaunchAndConnectExitBeforeConnect(t *testing.T) {
	launcher := NewProcessLauncher(5 * time.Second)
	start := time.Now()
	_, err := launcher.LaunchAndConnect(context.Background(), &LaunchSpec{
		CommandLine: func(address string) []string {
			return helperCommand("exit", "1")
		},
		Env:    helperEnv(),
		Output: OutputNone,
	})
	assert.ErrorIs(t, err, ErrExitedBeforeConnect)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLaunchAndConnectTimeout(t *testing.T) {
	launcher := NewProcessLauncher(time.Second)
	var listenAddress string
	_, err := launcher.LaunchAndConnect(context.Background(), &LaunchSpec{
		CommandLine: func(address string) []string {
			listenAddress = address
			return helperCommand("sleep")
		},
		Env:           helperEnv(),
		Output:        OutputNone,
		AcceptTimeout: 50 * time.Millisecond,
	})
	assert.ErrorIs(t, err, handshake.ErrAcceptTimeout)
	assert.NotEmpty(t, listenAddress)
}

func TestDebugSessionWithoutProcess(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	session := NewDebugSession(server, nil)
	assert.Nil(t, session.Process())
	assert.NoError(t, session.Terminate())
	_, err := server.Write([]byte("x"))
	assert.Error(t, err)
}
