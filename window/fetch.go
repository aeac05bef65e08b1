package window

import (
	"context"
	"fmt"

	"github.com/dot5enko/virtual-grid/schema"
	"github.com/google/uuid"
)

type fetchResult struct {
	records []schema.RowRecord
	err     error
}

func (c *Coordinator) startLocked(req FetchRequest, token uint64) {

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	c.inflight[id] = inflightRequest{Range: req.Range, Token: token}
	c.wg.Add(1)

	c.cfg.Logger.Debug("fetch scheduled", "request_id", id.String(), "range", req.Range.String(), "token", token)

	go c.run(id, req, token)
}

func (c *Coordinator) run(id uuid.UUID, req FetchRequest, token uint64) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.FetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)

	go func() {
		records, err := c.fetcher.Fetch(ctx, req)
		done <- fetchResult{records: records, err: err}
	}()

	var res fetchResult

	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("fetch %s: %w", req.Range.String(), ctx.Err())
	}

	if c.complete(id, req, token, res) {
		c.notify()
	}
}

func (c *Coordinator) notify() {
	c.lock.Lock()
	fn := c.onChange
	c.lock.Unlock()

	if fn != nil {
		fn()
	}
}

// complete settles one request. It reports whether the store changed.
func (c *Coordinator) complete(id uuid.UUID, req FetchRequest, token uint64, res fetchResult) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	log := c.cfg.Logger.With("request_id", id.String(), "range", req.Range.String())

	if _, ok := c.inflight[id]; !ok {
		log.Debug("late response dropped")
		return false
	}
	delete(c.inflight, id)

	if token != c.slots.Token() {
		log.Debug("stale response dropped", "token", token, "current", c.slots.Token())
		return false
	}

	r := req.Range

	if res.err == nil {
		res.err = c.validate(req, res.records)
	}

	if res.err != nil {
		c.slots.RevertPending(token, r.Skip, r.Take)

		c.failures[r]++
		failures := c.failures[r]

		log.Warn("fetch failed", "failures", failures, "err", res.err)

		if failures >= c.cfg.MaxFetchFailures {
			c.banner = &Banner{Range: r, Failures: failures, Err: res.err}
		}

		return true
	}

	records := res.records
	if len(records) > r.Take {
		records = records[:r.Take]
	}

	for i := range records {
		records[i].Layout = req.Layout
	}

	c.slots.ApplyLoaded(token, r.Skip, records)

	if len(records) < r.Take {
		// short page: the tail is unknown again, not loaded. The next scan asks
		// for exactly the tail, so repeats count against it.
		tail := schema.FetchRange{Skip: r.Skip + len(records), Take: r.Take - len(records)}
		c.slots.RevertPending(token, tail.Skip, tail.Take)

		if tail != r {
			delete(c.failures, r)
			if c.banner != nil && c.banner.Range == r {
				c.banner = nil
			}
		}

		c.failures[tail]++
		failures := c.failures[tail]

		log.Warn("short page", "records", len(records), "failures", failures)

		if failures >= c.cfg.MaxFetchFailures {
			c.banner = &Banner{Range: tail, Failures: failures, Err: fmt.Errorf("%w: %d of %d rows", ErrShortPage, len(records), r.Take)}
		}

		return true
	}

	delete(c.failures, r)
	if c.banner != nil && c.banner.Range == r {
		c.banner = nil
	}

	log.Debug("fetch applied", "records", len(records))

	return true
}

// validate rejects records that were fetched for another column layout; they
// would be read positionally against the wrong columns.
func (c *Coordinator) validate(req FetchRequest, records []schema.RowRecord) error {

	_, version := c.layout.VisibleWithVersion()
	if version != req.Layout {
		return fmt.Errorf("%w: layout %d, current %d", ErrLayoutMismatch, req.Layout, version)
	}

	for i, rec := range records {
		if len(rec.Values) != len(req.Columns) {
			return fmt.Errorf("%w: record %d has %d values for %d columns", ErrLayoutMismatch, req.Range.Skip+i, len(rec.Values), len(req.Columns))
		}
	}

	return nil
}
