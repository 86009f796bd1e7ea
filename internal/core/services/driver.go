package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
	"github.com/custodia-labs/tap-github/internal/logger"
)

// phase is the state of a partition being driven.
type phase int

const (
	phaseInit phase = iota
	phaseRequesting
	phaseParsing
	phaseMorePages
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInit:
		return "INIT"
	case phaseRequesting:
		return "REQUESTING"
	case phaseParsing:
		return "PARSING"
	case phaseMorePages:
		return "MORE_PAGES"
	case phaseDone:
		return "DONE"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// streamRun is a needed stream together with its needed children.
// emit is false for streams running in context-only mode.
type streamRun struct {
	stream   *domain.Stream
	emit     bool
	children []*streamRun
}

// runError marks failures that end the whole sync rather than one partition.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// progress receives driver events for status reporting.
type progress interface {
	streamStarted(name string)
	recordEmitted()
	partitionFailed()
}

type nopProgress struct{}

func (nopProgress) streamStarted(string) {}
func (nopProgress) recordEmitted()       {}
func (nopProgress) partitionFailed()     {}

// Driver drives stream partitions through their pages.
type Driver struct {
	transport driven.Transport
	sink      driven.RecordSink
	cursors   *CursorTracker
	schemas   *SchemaRegistry
	report    *domain.SyncReport
	progress  progress
}

// NewDriver creates a driver writing counters into report.
// schemas may be nil, in which case records are not validated.
func NewDriver(
	transport driven.Transport,
	sink driven.RecordSink,
	cursors *CursorTracker,
	schemas *SchemaRegistry,
	report *domain.SyncReport,
) *Driver {
	return &Driver{
		transport: transport,
		sink:      sink,
		cursors:   cursors,
		schemas:   schemas,
		report:    report,
		progress:  nopProgress{},
	}
}

// partition is the mutable state of one partition while it is driven.
type partition struct {
	run     *streamRun
	ctx     domain.Context
	cursor  *partitionCursor
	path    string
	token   domain.PageToken
	number  int
	fetched int
	resp    *driven.Response
}

// Run drives one partition to DONE. Request and parse failures are recorded
// in the report and do not return an error. The returned error is non-nil
// only when the whole sync must stop: cancellation, a configuration error,
// or a sink or state store failure.
func (d *Driver) Run(ctx context.Context, run *streamRun, pctx domain.Context) error {
	report := d.report.Stream(run.stream.Name)
	report.Selected = run.emit

	err := d.drive(ctx, run, pctx)
	if err == nil {
		return nil
	}

	var re *runError
	if errors.As(err, &re) || errors.Is(err, domain.ErrConfiguration) || ctx.Err() != nil {
		return err
	}

	report.Failures = append(report.Failures, domain.PartitionFailure{
		Stream:  run.stream.Name,
		Context: pctx,
		Err:     err,
	})
	d.progress.partitionFailed()
	logger.Warn("Stream %s partition %s failed: %v", run.stream.Name, pctx.Describe(), err)
	return nil
}

//nolint:gocyclo // State machine with one case per phase
func (d *Driver) drive(ctx context.Context, run *streamRun, pctx domain.Context) error {
	s := run.stream
	report := d.report.Stream(s.Name)
	p := &partition{run: run, ctx: pctx}

	state := phaseInit
	for state != phaseDone {
		switch state {
		case phaseInit:
			if skip, reason := shouldSkip(s, pctx); skip {
				report.Skipped++
				logger.Debug("Skipping %s partition %s: %s", s.Name, pctx.Describe(), reason)
				return nil
			}
			report.Partitions++

			cursor, err := d.cursors.Open(ctx, s, pctx, run.emit)
			if err != nil {
				return &runError{err: err}
			}
			p.cursor = cursor
			p.number = 1
			logger.Debug("Driving %s partition %s (since %q)", s.Name, pctx.Describe(), cursor.Since())
			state = phaseRequesting

		case phaseRequesting:
			if err := ctx.Err(); err != nil {
				return err
			}
			d.progress.streamStarted(s.Name)
			path, err := s.ResolvePath(pctx)
			if err != nil {
				return err
			}
			p.path = path

			resp, err := d.transport.Do(ctx, d.buildRequest(p))
			report.Requests++
			if err != nil {
				var se driven.StatusError
				if errors.As(err, &se) && s.Tolerates(se.Status()) {
					logger.Debug("Stream %s partition %s: tolerated status %d", s.Name, pctx.Describe(), se.Status())
					state = phaseDone
					continue
				}
				return fmt.Errorf("request %s page %d: %w", p.path, p.number, err)
			}
			p.resp = resp
			state = phaseParsing

		case phaseParsing:
			records, err := ExtractRecords(s, p.resp.Body)
			if err != nil {
				return err
			}
			if err := d.processPage(ctx, p, records); err != nil {
				return err
			}
			p.fetched += len(records)

			next := domain.PageToken("")
			if s.Paginator != nil {
				next = s.Paginator.Next(domain.Page{
					Number:  p.number,
					Token:   p.token,
					Header:  p.resp.Header,
					Records: len(records),
					Fetched: p.fetched,
				})
			}
			if next == "" {
				state = phaseDone
				continue
			}
			p.token = next
			state = phaseMorePages

		case phaseMorePages:
			p.number++
			p.resp = nil
			state = phaseRequesting
		}
	}
	return nil
}

// buildRequest assembles the request of the current page.
func (d *Driver) buildRequest(p *partition) driven.Request {
	s := p.run.stream
	query := url.Values{}
	if s.IsIncremental() && s.SinceParam != "" && p.cursor.Since() != "" {
		query.Set(s.SinceParam, p.cursor.Since())
	}
	if s.Paginator != nil {
		s.Paginator.Apply(query, p.token)
	}
	if s.Hooks.URLParams != nil {
		s.Hooks.URLParams(p.ctx, query)
	}

	header := http.Header{}
	if s.Hooks.Headers != nil {
		s.Hooks.Headers(p.ctx, header)
	}

	return driven.Request{
		Method:        http.MethodGet,
		Path:          p.path,
		Query:         query,
		Header:        header,
		CredentialSet: s.CredentialSet,
	}
}

// processPage shapes, emits and fans out every record of a page, then
// commits the partition bookmark.
func (d *Driver) processPage(ctx context.Context, p *partition, records []domain.Record) error {
	s := p.run.stream
	report := d.report.Stream(s.Name)

	for _, rec := range records {
		if s.Hooks.PostProcess != nil {
			shaped, keep := s.Hooks.PostProcess(rec, p.ctx)
			if !keep {
				continue
			}
			rec = shaped
		}
		if p.cursor.BelowFloor(rec) {
			continue
		}
		rec = mergeContext(s, rec, p.ctx)

		if p.run.emit {
			if d.schemas != nil {
				if err := d.schemas.Validate(s.Name, rec); err != nil {
					return err
				}
			}
			if err := d.sink.WriteRecord(ctx, s.Name, rec); err != nil {
				return &runError{err: fmt.Errorf("write record %s: %w", s.Name, err)}
			}
			report.Records++
			d.progress.recordEmitted()
		}
		p.cursor.Observe(rec)

		for _, child := range p.run.children {
			childCtx, err := deriveChildContext(s, rec, p.ctx)
			if err != nil {
				return err
			}
			if err := d.Run(ctx, child, childCtx); err != nil {
				return err
			}
		}
	}

	bookmark, err := p.cursor.Commit(ctx)
	if err != nil {
		return &runError{err: err}
	}
	if bookmark != nil {
		if err := d.sink.WriteState(ctx, *bookmark); err != nil {
			return &runError{err: fmt.Errorf("write state %s: %w", s.Name, err)}
		}
	}
	return nil
}
