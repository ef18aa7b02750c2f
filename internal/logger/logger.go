package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure the root logger of a binary
type Options struct {
	Name     string    // root name every child logger is prefixed with
	Level    string    // debug, info, warn, error; anything else means info
	Encoding string    // console or json; anything else means json
	Output   io.Writer // defaults to stderr, stdout is left to command replies
}

// New builds the root logger described by opts
func New(opts Options) *zap.Logger {
	lvl, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var (
		enc   zapcore.Encoder
		extra []zap.Option
	)
	if opts.Encoding == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
		extra = append(extra, zap.Development())
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	sink := zapcore.Lock(zapcore.AddSync(out))

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(lvl))
	log := zap.New(core, append(extra, zap.AddCaller(), zap.ErrorOutput(sink))...)

	if opts.Name != "" {
		log = log.Named(opts.Name)
	}
	return log
}
