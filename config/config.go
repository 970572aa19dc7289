package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fansqz/debug-adapter/constants"
	"github.com/fansqz/debug-adapter/launcher"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// 环境变量，优先级高于配置文件
const (
	EnvHost                 = "DEBUG_ADAPTER_HOST"
	EnvPort                 = "DEBUG_ADAPTER_PORT"
	EnvStdio                = "DEBUG_ADAPTER_STDIO"
	EnvLogFile              = "DEBUG_ADAPTER_LOG_FILE"
	EnvLogLevel             = "DEBUG_ADAPTER_LOG_LEVEL"
	EnvRuntimeExecutable    = "DEBUG_ADAPTER_RUNTIME_EXECUTABLE"
	EnvRunInTerminalTimeout = "DEBUG_ADAPTER_RUN_IN_TERMINAL_TIMEOUT"
	EnvAcceptTimeout        = "DEBUG_ADAPTER_ACCEPT_TIMEOUT"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8889
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Launch  LaunchConfig  `yaml:"launch"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	// Port 为0时由系统分配
	Port  int  `yaml:"port"`
	Stdio bool `yaml:"stdio"`
}

type LogConfig struct {
	// File 为空时输出到stderr
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type RuntimeConfig struct {
	Executable string `yaml:"executable"`
	JavaHome   string `yaml:"java_home"`
}

type LaunchConfig struct {
	RunInTerminalTimeout time.Duration `yaml:"run_in_terminal_timeout"`
	AcceptTimeout        time.Duration `yaml:"accept_timeout"`
	TerminalTitle        string        `yaml:"terminal_title"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level: "info",
		},
		Launch: LaunchConfig{
			RunInTerminalTimeout: constants.RunInTerminalTimeout,
			AcceptTimeout:        constants.AcceptTimeout,
			TerminalTitle:        constants.TerminalTitle,
		},
	}
}

// Load 依次应用默认值、配置文件、环境变量，然后校验
// configPath为空时不读取文件
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", configPath, err)
		}
	}
	cfg.applyDefaults()
	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyDefaults 配置文件中缺省的字段使用默认值
func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Launch.RunInTerminalTimeout == 0 {
		c.Launch.RunInTerminalTimeout = defaults.Launch.RunInTerminalTimeout
	}
	if c.Launch.AcceptTimeout == 0 {
		c.Launch.AcceptTimeout = defaults.Launch.AcceptTimeout
	}
	if c.Launch.TerminalTitle == "" {
		c.Launch.TerminalTitle = defaults.Launch.TerminalTitle
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv(EnvHost); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv(EnvPort); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Server.Port = port
		} else {
			logrus.Warnf("[Config] ignore %s=%q, err = %v", EnvPort, val, err)
		}
	}
	if val := os.Getenv(EnvStdio); val != "" {
		if stdio, err := strconv.ParseBool(val); err == nil {
			c.Server.Stdio = stdio
		}
	}
	if val := os.Getenv(EnvLogFile); val != "" {
		c.Log.File = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv(EnvRuntimeExecutable); val != "" {
		c.Runtime.Executable = val
	}
	if val := os.Getenv(constants.JavaHomeEnv); val != "" && c.Runtime.JavaHome == "" {
		c.Runtime.JavaHome = val
	}
	if val := os.Getenv(EnvRunInTerminalTimeout); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Launch.RunInTerminalTimeout = d
		}
	}
	if val := os.Getenv(EnvAcceptTimeout); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Launch.AcceptTimeout = d
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Launch.RunInTerminalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("launch.run_in_terminal_timeout must be positive, got %v", c.Launch.RunInTerminalTimeout))
	}
	if c.Launch.AcceptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("launch.accept_timeout must be positive, got %v", c.Launch.AcceptTimeout))
	}
	return errors.Join(errs...)
}

// Address 监听地址
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LaunchSettings 转换成launcher使用的设置
func (c *Config) LaunchSettings() launcher.Settings {
	return launcher.Settings{
		RuntimeExecutable:    c.Runtime.Executable,
		JavaHome:             c.Runtime.JavaHome,
		RunInTerminalTimeout: c.Launch.RunInTerminalTimeout,
		AcceptTimeout:        c.Launch.AcceptTimeout,
		TerminalTitle:        c.Launch.TerminalTitle,
	}
}
