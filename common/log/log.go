package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	LogTimeLayout = "15:04:05.000000"
)

type Level int

const (
	TraceLevel = Level(logrus.TraceLevel)
	DebugLevel = Level(logrus.DebugLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	ErrorLevel = Level(logrus.ErrorLevel)
	FatalLevel = Level(logrus.FatalLevel)
	PanicLevel = Level(logrus.PanicLevel)
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	case PanicLevel:
		return "panic"
	default:
		return "unknown"
	}
}

func ParseLevel(s string) (Level, error) {
	lv, err := logrus.ParseLevel(s)
	return Level(lv), err
}

const (
	FieldKeyModule  = "module"
	FieldKeyAccount = "account"
)

var systemFields = map[string]bool{
	FieldKeyModule: true,
}

type Fields logrus.Fields

type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithFields(Fields) Logger
	SetReportCaller(yn bool)
	SetLevel(lv Level)
	SetConsoleLevel(lv Level)
	SetModuleLevel(mod string, lv Level)
	SetFileWriter(writer io.Writer) error
}

type entryWrapper struct {
	*logrus.Entry
}

func (w entryWrapper) WithFields(fields Fields) Logger {
	return &entryWrapper{
		w.Entry.WithFields(logrus.Fields(fields)),
	}
}

func (w entryWrapper) SetReportCaller(yn bool) {
	w.Entry.Logger.SetReportCaller(yn)
}

func (w entryWrapper) SetLevel(lv Level) {
	w.Entry.Logger.SetLevel(logrus.Level(lv))
}

func (w entryWrapper) SetConsoleLevel(lv Level) {
	w.Entry.Logger.Formatter.(*logFilter).SetDefaultLevel(lv)
}

func (w entryWrapper) SetModuleLevel(mod string, lv Level) {
	w.Entry.Logger.Formatter.(*logFilter).SetModuleLevel(mod, lv)
}

func (w entryWrapper) SetFileWriter(writer io.Writer) error {
	return w.Entry.Logger.Formatter.(*logFilter).SetFileWriter(writer)
}

type loggerWrapper struct {
	*logrus.Logger
}

func (w loggerWrapper) WithFields(fields Fields) Logger {
	return &entryWrapper{
		w.Logger.WithFields(logrus.Fields(fields)),
	}
}

func (w loggerWrapper) SetLevel(lv Level) {
	w.Logger.SetLevel(logrus.Level(lv))
}

func (w loggerWrapper) SetConsoleLevel(lv Level) {
	w.Logger.Formatter.(*logFilter).SetDefaultLevel(lv)
}

func (w loggerWrapper) SetModuleLevel(mod string, lv Level) {
	w.Logger.Formatter.(*logFilter).SetModuleLevel(mod, lv)
}

func (w loggerWrapper) SetFileWriter(writer io.Writer) error {
	return w.Logger.Formatter.(*logFilter).SetFileWriter(writer)
}

func getPackageName(f string) string {
	lastSlash := strings.LastIndex(f, "/")
	if lastSlash >= 0 {
		f = f[lastSlash+1:]
	}

	firstPeriod := strings.Index(f, ".")
	if firstPeriod > 0 {
		f = f[0:firstPeriod]
	}
	return f
}

var globalLogger Logger

func SetGlobalLogger(logger Logger) {
	globalLogger = logger
}

func GlobalLogger() Logger {
	return globalLogger
}

func WithFields(fields Fields) Logger {
	return globalLogger.WithFields(fields)
}

func New() Logger {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Level = logrus.DebugLevel
	logger.SetReportCaller(true)
	logger.SetFormatter(newLogFilter(customFormatter{}))
	return &loggerWrapper{
		Logger: logger,
	}
}

func init() {
	SetGlobalLogger(New())
}
