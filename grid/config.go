package grid

import (
	"log/slog"
	"time"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/window"
)

type Config struct {
	RowHeight    float64
	Threshold    int
	MinBatchSize int

	FrameDelay   time.Duration
	PersistDelay time.Duration
	FetchTimeout time.Duration
	SaveTimeout  time.Duration

	MaxFetchFailures int

	MinColumnWidth int
	MaxColumnWidth int

	// used when the parent has no saved column configuration
	DefaultColumns []schema.Column

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.RowHeight <= 0 {
		c.RowHeight = 32
	}
	if c.Threshold <= 0 {
		c.Threshold = 40
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = 25
	}
	if c.FrameDelay <= 0 {
		c.FrameDelay = 16 * time.Millisecond
	}
	if c.PersistDelay <= 0 {
		c.PersistDelay = 500 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = 10 * time.Second
	}
	if c.MaxFetchFailures <= 0 {
		c.MaxFetchFailures = 3
	}
	if c.MinColumnWidth <= 0 {
		c.MinColumnWidth = schema.DefaultMinColumnWidth
	}
	if c.MaxColumnWidth < c.MinColumnWidth {
		c.MaxColumnWidth = max(schema.DefaultMaxColumnWidth, c.MinColumnWidth)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) window() window.Config {
	return window.Config{
		RowHeight:        c.RowHeight,
		Threshold:        c.Threshold,
		MinBatchSize:     c.MinBatchSize,
		FrameDelay:       c.FrameDelay,
		FetchTimeout:     c.FetchTimeout,
		MaxFetchFailures: c.MaxFetchFailures,
		Logger:           c.Logger,
	}
}
