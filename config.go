package dmc

import (
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultMemSize is the default number of bytes of predictor memory.
	DefaultMemSize = 0x1000000

	// DefaultWindow is the default number of plain bytes between two checks of the compression ratio.
	DefaultWindow = 256

	// DefaultFailLimit is the default number of coded bytes per window above which compression is deemed failing.
	DefaultFailLimit = 256

	progressInterval = 1 << 16
)

// Config holds the parameters of Compress and Decompress.
// Decompress must be given the same MemSize, Window and FailLimit that Compress was.
type Config struct {
	MemSize int64

	// Every Window plain bytes, the model is reset if more than FailLimit coded bytes were produced since the last check.
	Window    int64
	FailLimit int64

	Logger *zap.SugaredLogger
}

func (cfg Config) withDefaults() Config {
	if cfg.MemSize == 0 {
		cfg.MemSize = DefaultMemSize
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.FailLimit <= 0 {
		cfg.FailLimit = DefaultFailLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return cfg
}

// ParseMemSize parses a memory budget such as "16777216", "16m" or "16MiB".
func ParseMemSize(s string) (int64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return -1, errors.Wrapf(err, "memory size %q", s)
	}
	if n <= 0 {
		return -1, errors.Wrapf(ErrOutOfMemory, "memory size %q", s)
	}
	return n, nil
}

// NewLogger returns a console logger writing to stderr.
// Progress reports are only logged when verbose is set.
func NewLogger(verbose bool) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return l.Sugar(), nil
}
