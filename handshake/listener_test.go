package handshake

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeting = "JDWP-Handshake"

// echoPeer 模拟被调试程序：连接后原样返回greeting
func echoPeer(t *testing.T, address string, reply string) {
	conn, err := net.Dial("tcp", address)
	if !assert.NoError(t, err) {
		return
	}
	buf := make([]byte, len(greeting))
	if _, err := io.ReadFull(conn, buf); err == nil {
		_, _ = conn.Write([]byte(reply))
	}
	// 保持连接，直到adapter一方关闭
	_, _ = io.Copy(io.Discard, conn)
	_ = conn.Close()
}

func TestAcceptWithGreeting(t *testing.T) {
	l, err := Open(time.Second, WithGreeting(greeting))
	require.NoError(t, err)
	host, _, err := net.SplitHostPort(l.Address())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)

	go echoPeer(t, l.Address(), greeting)

	conn, err := l.Accept(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, err = l.Accept(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyAccepted)

	// listener已关闭，后续连接被拒绝
	_, err = net.DialTimeout("tcp", l.Address(), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestAcceptTimeout(t *testing.T) {
	l, err := Open(20 * time.Millisecond)
	require.NoError(t, err)
	address := l.Address()

	start := time.Now()
	_, err = l.Accept(context.Background())
	assert.ErrorIs(t, err, ErrAcceptTimeout)
	assert.Less(t, time.Since(start), time.Second)

	_, err = net.DialTimeout("tcp", address, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestAcceptWrongGreeting(t *testing.T) {
	l, err := Open(time.Second, WithGreeting(greeting))
	require.NoError(t, err)

	go echoPeer(t, l.Address(), "XXXX-Handshake")

	_, err = l.Accept(context.Background())
	assert.ErrorIs(t, err, ErrGreetingFailed)
}

func TestAcceptCancelled(t *testing.T) {
	l, err := Open(time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = l.Accept(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcceptAfterClose(t *testing.T) {
	l, err := Open(time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = l.Accept(context.Background())
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestAcceptTimeoutStartsAtAccept(t *testing.T) {
	l, err := Open(150*time.Millisecond, WithGreeting(greeting))
	require.NoError(t, err)

	// Open之后的等待不计入accept的超时
	time.Sleep(200 * time.Millisecond)
	go func() {
		time.Sleep(50 * time.Millisecond)
		echoPeer(t, l.Address(), greeting)
	}()

	conn, err := l.Accept(context.Background())
	require.NoError(t, err)
	_ = conn.Close()
}
