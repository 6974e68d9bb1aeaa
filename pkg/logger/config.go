package logger

import (
	"io"
	"log/slog"
)

type Backend string

const (
	BackendStd Backend = "std" // text in dev, JSON elsewhere
	BackendZap Backend = "zap" // zap core behind slog-zap
)

type Config struct {
	Service    string
	Version    string
	InstanceID string // hostname plus a random suffix when empty

	Level   slog.Level
	Env     Env
	Backend Backend // zap outside dev, std in dev
	Debug   bool    // forces debug level unless Level is set

	// zap sampling per second: first SampleInitial entries with the same
	// message, then every SampleThereafter-th
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}
