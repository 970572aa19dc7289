package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fansqz/debug-adapter/adapter"
	"github.com/fansqz/debug-adapter/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// 定义版本号
const Version = "1.1.0"

type serveOptions struct {
	configPath string
	host       string
	port       int
	stdio      bool
	logFile    string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &serveOptions{}
	root := &cobra.Command{
		Use:           "debug-adapter",
		Short:         "Debug adapter that launches Java programs for DAP front-ends",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve DAP over tcp or stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	addServeFlags(root.PersistentFlags(), opts)
	root.AddCommand(serve)
	return root
}

func addServeFlags(flags *pflag.FlagSet, opts *serveOptions) {
	flags.StringVarP(&opts.configPath, "config", "c", "", "path of the yaml config file")
	flags.StringVar(&opts.host, "host", config.DefaultHost, "host to listen on")
	flags.IntVarP(&opts.port, "port", "p", config.DefaultPort, "TCP port to listen on, 0 picks a free port")
	flags.BoolVar(&opts.stdio, "stdio", false, "serve a single session over stdin/stdout")
	flags.StringVar(&opts.logFile, "log-file", "", "log file, stderr when empty")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// applyFlags 命令行显式指定的参数覆盖配置
func applyFlags(flags *pflag.FlagSet, opts *serveOptions, cfg *config.Config) {
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("stdio") {
		cfg.Server.Stdio = opts.stdio
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	applyFlags(cmd.Flags(), opts, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if err := SetupLogger(cfg.Log.File, cfg.Log.Level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer CloseLogger()
	logrus.Infof("[DebugAdapter] Start, version = %s", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := adapter.NewServer(adapter.Options{
		Settings: cfg.LaunchSettings(),
		Log:      logrus.NewEntry(logrus.StandardLogger()),
	})
	if cfg.Server.Stdio {
		err = server.ServeStdio(ctx, os.Stdin, os.Stdout)
	} else {
		if err = server.Listen(cfg.Address()); err != nil {
			logrus.Errorf("[DebugAdapter] %v", err)
			return err
		}
		// 前端通过这一行获取实际端口
		fmt.Printf("started listening at: %s\n", server.Addr().String())
		err = server.Serve(ctx)
	}
	if err != nil {
		logrus.Errorf("[DebugAdapter] serve fail, err = %v", err)
	}
	return err
}
