package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel enumerates the supported diagnostic log levels.
type LogLevel string

// LogFormat enumerates the supported log encodings.
type LogFormat string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Supported log formats.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
	timestampFieldNameConstant           = "timestamp"
	levelFieldNameConstant               = "level"
	messageFieldNameConstant             = "message"
	callerFieldNameConstant              = "caller"
)

// LoggerOutputs pairs the diagnostic logger with the message-only console logger.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory builds zap loggers writing to standard error.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() LoggerFactory {
	return LoggerFactory{}
}

// CreateLoggerOutputs builds loggers for the requested level and format. The console logger is a no-op
// in structured mode so machine-readable output stays parseable.
func (factory LoggerFactory) CreateLoggerOutputs(level LogLevel, format LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := parseLogLevel(level)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	sink := zapcore.Lock(os.Stderr)
	switch LogFormat(strings.ToLower(strings.TrimSpace(string(format)))) {
	case LogFormatStructured:
		encoder := zapcore.NewJSONEncoder(diagnosticEncoderConfig())
		return LoggerOutputs{
			DiagnosticLogger: zap.New(zapcore.NewCore(encoder, sink, zapLevel)),
			ConsoleLogger:    zap.NewNop(),
		}, nil
	case LogFormatConsole:
		diagnosticConfig := diagnosticEncoderConfig()
		diagnosticConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		diagnosticConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

		consoleConfig := zapcore.EncoderConfig{
			MessageKey:  messageFieldNameConstant,
			LineEnding:  zapcore.DefaultLineEnding,
			EncodeLevel: zapcore.CapitalLevelEncoder,
		}
		return LoggerOutputs{
			DiagnosticLogger: zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(diagnosticConfig), sink, zapLevel)),
			ConsoleLogger:    zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), sink, zapLevel)),
		}, nil
	default:
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, format)
	}
}

func diagnosticEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        timestampFieldNameConstant,
		LevelKey:       levelFieldNameConstant,
		MessageKey:     messageFieldNameConstant,
		CallerKey:      callerFieldNameConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func parseLogLevel(level LogLevel) (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(level)))) {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, level)
	}
}
