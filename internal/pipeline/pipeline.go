// Package pipeline runs one batch end to end: fetch, detect, reconcile and
// publish.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/detect"
	"movement-tracker/pipeline/internal/enrich"
	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/postprocess"
	"movement-tracker/pipeline/internal/rules"
	"movement-tracker/pipeline/internal/sink"
	"movement-tracker/pipeline/internal/source"
	"movement-tracker/pipeline/internal/store"
)

// ErrNoEnricher is returned by Enrich when lookups are not configured.
var ErrNoEnricher = errors.New("enrichment is not enabled")

type Pipeline struct {
	cfg      config.Config
	sources  []source.Source
	sinks    []sink.Sink
	detector *detect.Detector
	seen     *store.Seen
	enricher *enrich.Enricher
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithSinks replaces the sinks built from the configuration.
func WithSinks(s ...sink.Sink) Option { return func(p *Pipeline) { p.sinks = s } }

// Result summarizes one Run.
type Result struct {
	RunID     string
	Documents int
	Skipped   int
	Detected  int
	Events    []model.Event
	Post      postprocess.Report
	// SinkErrors maps a sink name to its push failure.
	SinkErrors map[string]error
}

// New loads the rule set and known names and builds every configured
// component. Sources holding resources are released by Close.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(p)
	}

	r, err := rules.Load(cfg.Rules)
	if err != nil {
		return nil, err
	}
	names := r.KnownNames
	if cfg.KnownNames != "" {
		extra, err := LoadKnownNames(cfg.KnownNames)
		if err != nil {
			return nil, err
		}
		names = append(names, extra...)
	}
	dopts := []detect.Option{detect.WithLogger(p.logger), detect.WithMetrics(p.metrics)}
	if cfg.Detect.Proximity > 0 {
		dopts = append(dopts, detect.WithProximity(cfg.Detect.Proximity))
	}
	p.detector = detect.NewDetector(r, detect.NewGazetteerRecognizer(names), dopts...)

	deps := source.Deps{Logger: p.logger, Metrics: p.metrics, DefaultDate: cfg.DefaultDate}
	for _, sc := range cfg.Sources {
		s, err := source.NewFromConfig(sc, deps)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("build source %q: %w", sc.Name, err)
		}
		p.sources = append(p.sources, s)
		p.logger.Info("configured source", zap.String("source", s.Name()), zap.String("type", sc.Type))
	}

	if cfg.Enrich.Enable {
		var searcher enrich.Searcher
		if sc, ok := cfg.Source(cfg.Enrich.Source); ok && sc.Type == "gazette" {
			for _, s := range p.sources {
				if s.Name() == sc.Name {
					searcher, _ = s.(enrich.Searcher)
				}
			}
		}
		if searcher == nil {
			p.Close()
			return nil, fmt.Errorf("enrich: source %q is not a searchable gazette source", cfg.Enrich.Source)
		}
		p.enricher = enrich.New(searcher, enrich.Options{
			Delay:           cfg.Enrich.Delay,
			ReasonDays:      cfg.Enrich.ReasonDays,
			DestinationDays: cfg.Enrich.DestinationDays,
			Logger:          p.logger,
			Metrics:         p.metrics,
		})
	}

	if cfg.Dedup.Enable {
		p.seen = store.NewSeen(cfg.Dedup.MaxKeys, cfg.Dedup.TTL)
		p.logger.Info("document dedup enabled", zap.Int("max_keys", cfg.Dedup.MaxKeys), zap.Duration("ttl", cfg.Dedup.TTL))
	}

	if p.sinks == nil {
		p.sinks = append(p.sinks, sink.NewJSON(cfg.Output))
		if strings.TrimSpace(cfg.Loki.URL) != "" {
			p.sinks = append(p.sinks, sink.NewLoki(cfg.Loki))
		}
		if strings.TrimSpace(cfg.Victoria.URL) != "" {
			s, err := sink.NewVictoria(cfg.Victoria)
			if err != nil {
				p.Close()
				return nil, err
			}
			p.sinks = append(p.sinks, s)
		}
	}
	return p, nil
}

// Close releases sources that hold open handles.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.sources {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Run executes one batch. A failing source is logged and skipped; a failing
// sink is logged and reported in Result without stopping the others.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), SinkErrors: map[string]error{}}
	started := p.now()
	log := p.logger.With(zap.String("run_id", res.RunID))

	var docs []model.Document
	for _, src := range p.sources {
		got, err := src.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Error("fetch failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		kept := 0
		for _, d := range got {
			if p.seen != nil && !p.seen.Add(store.Key(d.Source, d.ID)) {
				res.Skipped++
				continue
			}
			docs = append(docs, d)
			kept++
		}
		log.Info("fetched", zap.String("source", src.Name()), zap.Int("documents", len(got)), zap.Int("new", kept))
	}
	p.metrics.ObserveDocuments("all", "skipped", res.Skipped)
	res.Documents = len(docs)

	var events []model.Event
	for _, d := range docs {
		events = append(events, p.detector.Detect(d)...)
	}
	res.Detected = len(events)

	gt, err := p.groundTruth(log)
	if err != nil {
		return res, err
	}
	opts := postprocess.Options{
		DedupWindowDays: p.cfg.Post.DedupWindowDays,
		MatchWindowDays: p.cfg.Post.MatchWindowDays,
		GroundTruth:     gt,
		Logger:          log,
		Metrics:         p.metrics,
	}
	if p.enricher != nil {
		opts.Lookup = func(ctx context.Context, evs []model.Event) { p.enricher.Enrich(ctx, evs) }
	}
	res.Events, res.Post = postprocess.Apply(ctx, events, opts)

	info := sink.RunInfo{
		ID:         res.RunID,
		StartedAt:  started,
		FinishedAt: p.now(),
		Documents:  res.Documents,
		Skipped:    res.Skipped,
		Detected:   res.Detected,
		Post:       res.Post,
	}
	p.push(ctx, log, info, res.Events, res.SinkErrors)

	if path := p.cfg.Metrics.Textfile; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			log.Warn("metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}
	log.Info("batch finished",
		zap.Int("documents", res.Documents),
		zap.Int("events", len(res.Events)),
		zap.Int("sink_errors", len(res.SinkErrors)),
		zap.Duration("took", p.now().Sub(started).Truncate(time.Millisecond)))
	return res, nil
}

// push fans events out to every sink concurrently.
func (p *Pipeline) push(ctx context.Context, log *zap.Logger, info sink.RunInfo, events []model.Event, failed map[string]error) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, sk := range p.sinks {
		if ra, ok := sk.(sink.RunAware); ok {
			ra.SetRun(info)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sk.Push(ctx, events); err != nil {
				p.metrics.ObserveSinkPush(sk.Name(), "error")
				log.Error("push failed", zap.String("sink", sk.Name()), zap.Error(err))
				mu.Lock()
				failed[sk.Name()] = err
				mu.Unlock()
				return
			}
			p.metrics.ObserveSinkPush(sk.Name(), "ok")
		}()
	}
	wg.Wait()
}

func (p *Pipeline) groundTruth(log *zap.Logger) ([]model.GroundTruthRecord, error) {
	if p.cfg.GroundTruth == "" {
		return nil, nil
	}
	recs, err := postprocess.LoadGroundTruth(p.cfg.GroundTruth)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("ground truth file not found", zap.String("path", p.cfg.GroundTruth))
		return nil, nil
	}
	return recs, err
}

// Enrich runs archive lookups over an already reconciled event list.
func (p *Pipeline) Enrich(ctx context.Context, events []model.Event) (enrich.Report, error) {
	if p.enricher == nil {
		return enrich.Report{}, ErrNoEnricher
	}
	return p.enricher.Enrich(ctx, events), nil
}

// LoadKnownNames reads one name per line. Blank lines and lines starting
// with '#' are ignored.
func LoadKnownNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("known names: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("known names: %w", err)
	}
	return names, nil
}
