package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var logFile *os.File

// SetupLogger 配置全局logger，logPath为空时输出到stderr
// stdio模式下stdout用于协议通信，日志不能写到stdout
func SetupLogger(logPath string, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   !isatty.IsTerminal(os.Stderr.Fd()),
	}

	var out io.Writer = os.Stderr
	if logPath != "" {
		formatter.DisableColors = true
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = logFile
	}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(out)
	return nil
}

func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
	}
}
