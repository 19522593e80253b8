// Package enrich looks up the gazette archive for exits whose destination is
// still a placeholder after cross-matching.
package enrich

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"movement-tracker/pipeline/internal/detect"
	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/source"
)

// Searcher runs one archive query.
type Searcher interface {
	Search(ctx context.Context, q source.Query) ([]source.Row, error)
}

var (
	reasonTerms     = []string{"vago", "vacância", "exonerar", "aposentadoria"}
	nominationTerms = []string{"nome"}
)

type Options struct {
	Delay           time.Duration // gap between consecutive lookups
	ReasonDays      int           // reason search spans date ± ReasonDays
	DestinationDays int           // nomination search spans [date - DestinationDays, date]
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

type Enricher struct {
	searcher Searcher
	limiter  *rate.Limiter
	opts     Options
	logger   *zap.Logger
}

func New(s Searcher, opts Options) *Enricher {
	if opts.Delay <= 0 {
		opts.Delay = 100 * time.Millisecond
	}
	if opts.ReasonDays <= 0 {
		opts.ReasonDays = 3
	}
	if opts.DestinationDays <= 0 {
		opts.DestinationDays = 30
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		searcher: s,
		limiter:  rate.NewLimiter(rate.Every(opts.Delay), 1),
		opts:     opts,
		logger:   logger,
	}
}

// Report counts the outcome of one Enrich call.
type Report struct {
	Candidates   int `json:"candidates"`
	Reasons      int `json:"reasons"`
	Destinations int `json:"destinations"`
	Failures     int `json:"failures"`
}

// Enrich updates events in place. Only identified exits with a placeholder
// destination are looked up. A failed lookup is logged and counted as no
// match; cancellation stops the loop.
func (e *Enricher) Enrich(ctx context.Context, events []model.Event) Report {
	var rep Report
	for i := range events {
		ev := &events[i]
		if ev.Type != model.Exit || !ev.Identified() || !ev.HasGenericDestination() {
			continue
		}
		d, err := model.ParseDate(ev.Date)
		if err != nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		rep.Candidates++

		if ev.Reason == "" {
			row, ok, err := e.lookup(ctx, "reason", source.Query{
				Start: d.AddDate(0, 0, -e.opts.ReasonDays).Format(model.DateLayout),
				End:   d.AddDate(0, 0, e.opts.ReasonDays).Format(model.DateLayout),
				All:   []string{strings.ToLower(ev.Name)},
				Any:   reasonTerms,
				Limit: 1,
			})
			switch {
			case err != nil:
				rep.Failures++
			case ok:
				ev.Reason = ClassifyReason(row.Text)
				rep.Reasons++
			default:
				ev.Reason = model.Unidentified
			}
		}

		row, ok, err := e.lookup(ctx, "destination", source.Query{
			Start: d.AddDate(0, 0, -e.opts.DestinationDays).Format(model.DateLayout),
			End:   ev.Date,
			All:   []string{strings.ToLower(ev.Name)},
			Any:   nominationTerms,
			Limit: 1,
		})
		if err != nil {
			rep.Failures++
			continue
		}
		if !ok {
			continue
		}
		dest := source.OrganHint(row.Organ)
		if dest == "" {
			dest = strings.TrimSpace(row.Organ)
		}
		if dest == "" {
			continue
		}
		ev.Destination = dest
		if role := detect.ExtractRole(row.Text); role != model.Unidentified {
			ev.Role = role
		}
		ev.Confidence += model.SearchedSuffix
		rep.Destinations++
		e.logger.Debug("destination found",
			zap.String("name", ev.Name), zap.String("destination", dest), zap.String("published", row.Date))
	}
	e.logger.Info("enrichment done",
		zap.Int("candidates", rep.Candidates),
		zap.Int("reasons", rep.Reasons),
		zap.Int("destinations", rep.Destinations),
		zap.Int("failures", rep.Failures))
	return rep
}

// lookup waits for the limiter, runs q and returns the most recent row.
func (e *Enricher) lookup(ctx context.Context, kind string, q source.Query) (source.Row, bool, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return source.Row{}, false, err
	}
	rows, err := e.searcher.Search(ctx, q)
	if err != nil {
		e.opts.Metrics.ObserveLookup(kind, "error")
		e.logger.Warn("lookup failed", zap.String("kind", kind), zap.Strings("terms", q.All), zap.Error(err))
		return source.Row{}, false, err
	}
	if len(rows) == 0 {
		e.opts.Metrics.ObserveLookup(kind, "miss")
		return source.Row{}, false, nil
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.Date > best.Date {
			best = r
		}
	}
	e.opts.Metrics.ObserveLookup(kind, "hit")
	return best, true, nil
}
