package console

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// collector 并发安全地收集sink的输出
type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) sink(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, text)
}

func (c *collector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func (c *collector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...)
}

func TestConsoleForwardsBothStreams(t *testing.T) {
	out, errOut := &collector{}, &collector{}
	c := New("Main", strings.NewReader("hello\n"), strings.NewReader("boom\n"), nil)
	c.OnStdout(out.sink)
	c.OnStderr(errOut.sink)
	c.Start()
	c.Wait()

	assert.Equal(t, "hello\n", out.text())
	assert.Equal(t, "boom\n", errOut.text())
	assert.Zero(t, c.ActiveStreams())
}

func TestConsoleDecodesLegacyEncoding(t *testing.T) {
	out := &collector{}
	// "café" in ISO-8859-1
	c := New("Main", strings.NewReader("caf\xe9\n"), nil, charmap.ISO8859_1)
	c.OnStdout(out.sink)
	c.Start()
	c.Wait()

	assert.Equal(t, "café\n", out.text())
}

func TestConsoleKeepsSplitRunesTogether(t *testing.T) {
	pr, pw := io.Pipe()
	out := &collector{}
	c := New("Main", pr, nil, nil)
	c.OnStdout(out.sink)
	c.Start()
	assert.Equal(t, 1, c.ActiveStreams())

	euro := []byte("€")
	_, err := pw.Write(append([]byte("price "), euro[:1]...))
	require.NoError(t, err)
	_, err = pw.Write(append(euro[1:], '\n'))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	c.Wait()

	assert.Equal(t, "price €\n", out.text())
	for _, chunk := range out.all() {
		assert.NotContains(t, chunk, "�")
	}
}

func TestConsoleStopIsIdempotent(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := New("Main", pr, nil, nil)
	c.Start()

	c.Stop()
	c.Stop()

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after Stop")
	}
	assert.Zero(t, c.ActiveStreams())
}

func TestCompletePrefix(t *testing.T) {
	euro := []byte("€")
	assert.Equal(t, 3, completePrefix([]byte("abc")))
	assert.Equal(t, 1, completePrefix(append([]byte("a"), euro[:2]...)))
	assert.Equal(t, 4, completePrefix(append([]byte("a"), euro...)))
	assert.Equal(t, 0, completePrefix(nil))
}
