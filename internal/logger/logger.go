package logger

import (
	"os"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a centralized structured logger tagging every entry
// with the emitting module.
type Logger struct {
	z *zap.Logger
}

// New creates a new Logger writing JSON entries to stdout.
func New() *Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
	return &Logger{z: zap.New(core)}
}

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex = regexp.MustCompile(`eyJ[^\s]+`)
)

// Anonymize replaces sensitive information in logs (emails, tokens).
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	return s
}

func (l *Logger) Info(module, msg string) {
	l.z.Info(Anonymize(msg), zap.String("module", module))
}

func (l *Logger) Debug(module, msg string) {
	l.z.Debug(Anonymize(msg), zap.String("module", module))
}

func (l *Logger) Error(module, msg string, err error) {
	fields := []zap.Field{zap.String("module", module)}
	if err != nil {
		fields = append(fields, zap.String("error", Anonymize(err.Error())))
	}
	l.z.Error(Anonymize(msg), fields...)
}
