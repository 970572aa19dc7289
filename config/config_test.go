package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{EnvHost, EnvPort, EnvStdio, EnvLogFile, EnvLogLevel, EnvRuntimeExecutable,
		EnvRunInTerminalTimeout, EnvAcceptTimeout, constants.JavaHomeEnv} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8889", cfg.Address())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, constants.RunInTerminalTimeout, cfg.Launch.RunInTerminalTimeout)
	assert.Equal(t, constants.AcceptTimeout, cfg.Launch.AcceptTimeout)
	// 没有覆盖时两个超时都是固定的10s
	assert.Equal(t, 10*time.Second, cfg.LaunchSettings().RunInTerminalTimeout)
	assert.Equal(t, 10*time.Second, cfg.LaunchSettings().AcceptTimeout)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 0
  stdio: true
log:
  level: debug
runtime:
  executable: /opt/jdk/bin/java
launch:
  run_in_terminal_timeout: 3s
  terminal_title: Java Console
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Server.Port)
	assert.True(t, cfg.Server.Stdio)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Log.Level)

	settings := cfg.LaunchSettings()
	assert.Equal(t, "/opt/jdk/bin/java", settings.RuntimeExecutable)
	assert.Equal(t, 3*time.Second, settings.RunInTerminalTimeout)
	assert.Equal(t, constants.AcceptTimeout, settings.AcceptTimeout)
	assert.Equal(t, "Java Console", settings.TerminalTitle)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvAcceptTimeout, "250ms")
	t.Setenv(constants.JavaHomeEnv, "/env/jdk")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Launch.AcceptTimeout)
	assert.Equal(t, "/env/jdk", cfg.Runtime.JavaHome)
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log.level")

	_, err = Load(writeConfig(t, "server:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "server.port")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}
