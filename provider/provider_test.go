package provider

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct {
	optionsHolder
}

func (p *failingProvider) Name() string                           { return "failing" }
func (p *failingProvider) DefaultOptions() map[string]interface{} { return nil }
func (p *failingProvider) Initialize(*session.Context, map[string]interface{}) error {
	return errors.New("not ready")
}

func TestDefaultRegistryOrder(t *testing.T) {
	r := NewDefaultRegistry()
	var names []string
	for _, p := range r.All() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{SourceLookupName, EvaluationName, HotCodeReplaceName, CompletionsName}, names)

	_, ok := r.Get(HotCodeReplaceName)
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestInitializeAllMergesOptions(t *testing.T) {
	r := NewDefaultRegistry()
	sctx := session.NewContext()
	common := map[string]interface{}{
		constants.DebuggeeEncoding: "UTF-8",
		constants.ProjectName:      "demo",
		constants.MainClass:        "com.example.Main",
	}
	require.NoError(t, r.InitializeAll(sctx, common))

	for _, p := range r.All() {
		holder := p.(interface {
			Option(key string) (interface{}, bool)
		})
		for key, want := range common {
			got, ok := holder.Option(key)
			assert.True(t, ok, "%s missing %s", p.Name(), key)
			assert.Equal(t, want, got)
		}
	}
	hcr, _ := r.Get(HotCodeReplaceName)
	mode, ok := hcr.(*HotCodeReplaceProvider).Option("hotCodeReplace")
	assert.True(t, ok)
	assert.Equal(t, "manual", mode)
}

func TestInitializeAllStopsOnError(t *testing.T) {
	r := NewRegistry()
	r.Register(&failingProvider{})
	err := r.InitializeAll(session.NewContext(), nil)
	assert.ErrorContains(t, err, "failing")
}

func TestSourceLookup(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "com", "example")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	file := filepath.Join(dir, "Main.java")
	require.NoError(t, os.WriteFile(file, []byte("class Main {}"), 0o644))

	sctx := session.NewContext()
	sctx.SetSourcePaths([]string{filepath.Join(root, "missing"), root, root})

	p := NewSourceLookupProvider()
	require.NoError(t, p.Initialize(sctx, p.DefaultOptions()))

	assert.Equal(t, file, p.SourceFile("com.example.Main"))
	assert.Equal(t, file, p.SourceFile("com.example.Main$Inner"))
	assert.Equal(t, file, p.SourceFile("app.module/com.example.Main"))
	assert.Empty(t, p.SourceFile("com.example.Other"))
	assert.Empty(t, p.SourceFile(""))

	// 命中过的结果来自缓存，重新Initialize后失效
	require.NoError(t, os.Remove(file))
	assert.Equal(t, file, p.SourceFile("com.example.Main"))
	require.NoError(t, p.Initialize(sctx, p.DefaultOptions()))
	assert.Empty(t, p.SourceFile("com.example.Main"))
}
