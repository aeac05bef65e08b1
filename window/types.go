package window

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dot5enko/virtual-grid/schema"
)

var (
	ErrLayoutMismatch = errors.New("fetched records do not match the column layout")
	ErrShortPage      = errors.New("backend returned fewer rows than the total promised")
)

type Viewport struct {
	ScrollTop float64
	Height    float64
}

// FetchRequest asks the data layer for Range of Query. Values of every
// returned record must follow Columns, the visible column keys at request time.
type FetchRequest struct {
	Query   schema.Query
	Range   schema.FetchRange
	Columns []string
	Layout  uint64
}

// Fetcher returns at most Range.Take records starting at Range.Skip. An empty
// result past the end of the data is valid.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]schema.RowRecord, error)
}

// Slots is the part of the row store the coordinator schedules against.
type Slots interface {
	Len() int
	Token() uint64
	State(index int) schema.SlotState
	States(from, to int) []schema.SlotState
	MarkPending(skip, take int) int
	RevertPending(token uint64, skip, take int) int
	ApplyLoaded(token uint64, skip int, records []schema.RowRecord) bool
}

type Layout interface {
	VisibleWithVersion() ([]schema.Column, uint64)
}

// Banner is raised after a range failed MaxFetchFailures times in a row.
type Banner struct {
	Range    schema.FetchRange
	Failures int
	Err      error
}

type Config struct {
	RowHeight    float64
	Threshold    int
	MinBatchSize int

	FrameDelay   time.Duration
	FetchTimeout time.Duration

	MaxFetchFailures int

	Logger *slog.Logger
}

func (c Config) WithDefaults() Config {
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
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxFetchFailures <= 0 {
		c.MaxFetchFailures = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
