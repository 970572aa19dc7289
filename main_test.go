package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fansqz/debug-adapter/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	opts := &serveOptions{}
	addServeFlags(flags, opts)
	require.NoError(t, flags.Parse([]string{"--port", "0", "--stdio"}))

	cfg := config.Default()
	cfg.Log.Level = "debug"
	applyFlags(flags, opts, cfg)

	assert.Equal(t, 0, cfg.Server.Port)
	assert.True(t, cfg.Server.Stdio)
	assert.Equal(t, config.DefaultHost, cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRootCommandHasServe(t *testing.T) {
	root := newRootCommand()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
	assert.NotNil(t, root.PersistentFlags().Lookup("log-file"))
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "adapter.log")
	require.NoError(t, SetupLogger(path, "debug"))
	t.Cleanup(func() {
		CloseLogger()
		logFile = nil
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	logrus.Debugf("[Test] hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Test] hello")

	assert.Error(t, SetupLogger("", "loud"))
}
