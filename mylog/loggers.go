package mylog

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat/go-file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// const
const (
	PanicLevel = "panic"
	FatalLevel = "fatal"
	ErrorLevel = "error"
	WarnLevel  = "warn"
	InfoLevel  = "info"
	DebugLevel = "debug"
)

const timestampFormat = "2006-01-02 15:04:05"

func convertLevel(level string) logrus.Level {
	switch level {
	case PanicLevel:
		return logrus.PanicLevel
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// NewFileRotateHooker writes every level to <path>/hivebridge.log.YYYYMMDD,
// rotating daily and keeping age days of files.
func NewFileRotateHooker(path string, age uint32) (logrus.Hook, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	if age == 0 {
		age = 7
	}
	base := filepath.Join(path, "hivebridge.log")
	writer, err := rotatelogs.New(
		base+".%Y%m%d",
		rotatelogs.WithLinkName(base),
		rotatelogs.WithMaxAge(time.Duration(age)*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, err
	}
	writers := lfshook.WriterMap{}
	for _, level := range logrus.AllLevels {
		writers[level] = writer
	}
	return lfshook.NewHook(writers, &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	}), nil
}

// Init loggers. An empty path logs to stdout only.
func Init(path string, level string, age uint32) *logrus.Logger {
	clog := logrus.New()
	clog.Out = os.Stdout
	clog.Formatter = &logrus.TextFormatter{
		ForceColors:     true,
		TimestampFormat: timestampFormat,
		FullTimestamp:   true,
	}
	clog.Level = convertLevel(level)

	if path != "" {
		hook, err := NewFileRotateHooker(path, age)
		if err != nil {
			clog.Warn("file logging disabled: ", err)
		} else {
			clog.Hooks.Add(hook)
		}
	}
	return clog
}

// Discard returns a logger that drops everything. Tests and one-shot CLI
// commands use it.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}
