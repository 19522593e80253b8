package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/store"
	"movement-tracker/pipeline/internal/util"
)

// Row is one publication returned by the gazette archive.
type Row struct {
	ID      string `json:"id,omitempty"`
	Date    string `json:"date"`
	Section string `json:"section,omitempty"`
	Organ   string `json:"organ,omitempty"`
	Text    string `json:"text"`
	URL     string `json:"url,omitempty"`
}

// Query selects archive rows. Terms are matched case-insensitively by the
// archive: every All term and at least one Any term must occur in the text.
type Query struct {
	Start   string // YYYY-MM-DD, inclusive
	End     string // YYYY-MM-DD, inclusive
	All     []string
	Any     []string
	Organ   string
	Section string
	Limit   int
	Offset  int
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("start", q.Start)
	v.Set("end", q.End)
	for _, t := range q.All {
		v.Add("all", t)
	}
	for _, t := range q.Any {
		v.Add("any", t)
	}
	if q.Organ != "" {
		v.Set("organ", q.Organ)
	}
	if q.Section != "" {
		v.Set("section", q.Section)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// GazetteSource pages through an HTTP gazette archive. Query results are
// cached on disk and the latest publication date is kept as a cursor.
type GazetteSource struct {
	name    string
	cfg     config.GazetteConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   *store.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewGazetteSource(name string, cfg config.GazetteConfig, deps Deps) (*GazetteSource, error) {
	if name == "" {
		name = "gazette"
	}
	s := &GazetteSource{
		name:    name,
		cfg:     cfg,
		client:  util.NewHTTPClient(defaultDur(cfg.HTTP.Timeout, 30*time.Second)),
		limiter: rate.NewLimiter(rate.Every(defaultDur(cfg.Delay, 100*time.Millisecond)), 1),
		logger:  deps.logger().With(zap.String("source", name)),
		metrics: deps.Metrics,
		now:     time.Now,
	}
	if cfg.CachePath != "" {
		c, err := store.OpenCache(cfg.CachePath, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.cache = c
	}
	return s, nil
}

func (s *GazetteSource) Name() string { return s.name }

func (s *GazetteSource) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// window resolves the fetch range: explicit dates, then the cursor, then the
// lookback from today.
func (s *GazetteSource) window() (string, string, error) {
	today := s.now().UTC().Format(model.DateLayout)
	end := s.cfg.End
	if end == "" {
		end = today
	}
	start := s.cfg.Start
	if start == "" && s.cfg.StatePath != "" {
		st, err := store.LoadGazetteState(s.cfg.StatePath)
		if err != nil {
			return "", "", err
		}
		start = st.LastPublished
	}
	if start == "" {
		days := s.cfg.LookbackDays
		if days <= 0 {
			days = 7
		}
		start = s.now().UTC().AddDate(0, 0, -days).Format(model.DateLayout)
	}
	if start > end {
		start = end
	}
	return start, end, nil
}

// Fetch returns the documents published in the current window.
func (s *GazetteSource) Fetch(ctx context.Context) ([]model.Document, error) {
	start, end, err := s.window()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	base := Query{
		Start:   start,
		End:     end,
		Any:     s.cfg.ActTerms,
		Organ:   s.cfg.OrganTerm,
		Section: s.cfg.Section,
		Limit:   s.cfg.PageSize,
	}
	if base.Limit <= 0 {
		base.Limit = 100
	}
	maxPages := s.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}

	key := "window:" + base.values().Encode()
	rows, hit := s.cached(ctx, key)
	if hit {
		s.metrics.ObserveDocuments(s.name, "cache", len(rows))
	} else {
		for page := 0; page < maxPages; page++ {
			q := base
			q.Offset = page * base.Limit
			got, err := s.request(ctx, q)
			if err != nil {
				s.metrics.ObserveDocuments(s.name, "error", 1)
				return nil, fmt.Errorf("%s: page %d: %w", s.name, page, err)
			}
			rows = append(rows, got...)
			if len(got) < base.Limit {
				break
			}
		}
		s.metrics.ObserveDocuments(s.name, "fetched", len(rows))
		s.store(ctx, key, rows)
	}

	docs := make([]model.Document, 0, len(rows))
	latest := ""
	for _, r := range rows {
		d := Render(r)
		d.Source = s.name
		docs = append(docs, d)
		if d.Date > latest {
			latest = d.Date
		}
	}
	s.logger.Info("gazette window fetched",
		zap.String("start", start), zap.String("end", end),
		zap.Int("rows", len(rows)), zap.Bool("cached", hit))

	if s.cfg.StatePath != "" && latest != "" {
		if err := store.SaveGazetteState(s.cfg.StatePath, store.GazetteState{LastPublished: latest, UpdatedAt: s.now().UTC()}); err != nil {
			s.logger.Warn("save state", zap.Error(err))
		}
	}
	return docs, nil
}

// Search runs one archive query, served from the cache when possible.
func (s *GazetteSource) Search(ctx context.Context, q Query) ([]Row, error) {
	key := "search:" + q.values().Encode()
	if rows, ok := s.cached(ctx, key); ok {
		return rows, nil
	}
	rows, err := s.request(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: search: %w", s.name, err)
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *GazetteSource) cached(ctx context.Context, key string) ([]Row, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			s.logger.Warn("cache read", zap.Error(err))
		}
		return nil, false
	}
	var rows []Row
	if err := json.Unmarshal(b, &rows); err != nil {
		s.logger.Warn("cache decode", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return rows, true
}

func (s *GazetteSource) store(ctx context.Context, key string, rows []Row) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(rows)
	if err == nil {
		err = s.cache.Put(ctx, key, b)
	}
	if err != nil {
		s.logger.Warn("cache write", zap.Error(err))
	}
}

func (s *GazetteSource) request(ctx context.Context, q Query) ([]Row, error) {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/search?" + q.values().Encode()

	var raw []byte
	err := util.Retry(ctx, s.cfg.HTTP.MaxRetries, defaultDur(s.cfg.HTTP.Backoff, 500*time.Millisecond), defaultDur(s.cfg.HTTP.MaxBackoff, 5*time.Second), func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if ua := s.cfg.HTTP.UserAgent; ua != "" {
			req.Header.Set("User-Agent", ua)
		}
		if k := strings.TrimSpace(s.cfg.APIKey); k != "" {
			req.Header.Set("Authorization", "Bearer "+k)
		}
		b, err := util.Do(s.client, req)
		if err != nil {
			s.logger.Debug("archive request failed", zap.String("url", u), zap.Error(err))
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parseRows(raw)
}

// parseRows accepts {"rows": [...]}, {"data": [...]} or a top-level array, with
// the column names of the archive exports.
func parseRows(raw []byte) ([]Row, error) {
	var flat []map[string]any
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, k := range []string{"rows", "data", "items"} {
			if v, ok := obj[k]; ok {
				if err := json.Unmarshal(v, &flat); err != nil {
					return nil, fmt.Errorf("decode %s: %w", k, err)
				}
				break
			}
		}
	} else if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	rows := make([]Row, 0, len(flat))
	for _, m := range flat {
		r := Row{
			ID:      pickStr(m, "id", "_id", "uuid"),
			Section: pickStr(m, "secao", "section"),
			Organ:   pickStr(m, "orgao", "organ"),
			Text:    pickStr(m, "texto", "texto_completo", "texto_principal", "text"),
			URL:     pickStr(m, "url", "link"),
		}
		if ts := pickStr(m, "data_publicacao", "date", "published_at"); ts != "" {
			if t, err := parseTimeFlexible(ts); err == nil {
				r.Date = t.Format(model.DateLayout)
			}
		}
		if r.Text == "" {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

var organRegion = regexp.MustCompile(`(?i)regional\s+do\s+trabalho\s+da\s+(\d{1,2})`)

// OrganHint turns an archive organ column into a court code when it names a
// regional labor court.
func OrganHint(organ string) string {
	if m := organRegion.FindStringSubmatch(organ); m != nil {
		return model.NormalizeOrgan(m[1])
	}
	if o := model.NormalizeOrgan(organ); strings.HasPrefix(o, "TRT") {
		return o
	}
	return ""
}

// Render builds the detector input for a row: a short metadata header
// followed by the publication text.
func Render(r Row) model.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "DATA: %s\n", r.Date)
	fmt.Fprintf(&b, "FONTE: DOU Seção %s\n", r.Section)
	fmt.Fprintf(&b, "ORGAO: %s\n", r.Organ)
	fmt.Fprintf(&b, "URL: %s\n", r.URL)
	b.WriteString("---\n")
	b.WriteString(r.Text)

	id := r.ID
	if id == "" {
		id = r.URL
	}
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.Date+"\x00"+r.Text)).String()
	}
	return model.Document{
		ID:    id,
		Ref:   "DOU_" + r.Date,
		Date:  r.Date,
		Organ: OrganHint(r.Organ),
		Text:  b.String(),
	}
}
