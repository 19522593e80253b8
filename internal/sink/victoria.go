package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"movement-tracker/pipeline/internal/aggregate"
	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/util"
)

// MonthlyExitsMetric is the series imported into VictoriaMetrics.
const MonthlyExitsMetric = "movement_tracker_monthly_exits"

type victoriaSink struct {
	cfg    config.VictoriaConfig
	client *http.Client
}

func NewVictoria(cfg config.VictoriaConfig) (Sink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("victoria: url is required")
	}
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &victoriaSink{
		cfg:    cfg,
		client: util.NewHTTPClient(to),
	}, nil
}

func (v *victoriaSink) Name() string { return "victoria" }

// Push imports one sample per (organ, month) holding the number of exits,
// timestamped at the first day of the month.
func (v *victoriaSink) Push(ctx context.Context, events []model.Event) error {
	body := MonthlyExits(events)
	if len(body) == 0 {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL+"/api/v1/import/prometheus", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if ua := v.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	_, err = util.Do(v.client, req)
	return err
}

// MonthlyExits renders exit counts in Prometheus text exposition format,
// sorted by organ then month. Events with unparseable dates are skipped.
func MonthlyExits(events []model.Event) []byte {
	type key struct {
		organ string
		month string
	}
	counts := map[key]int{}
	for _, e := range events {
		if e.Type != model.Exit {
			continue
		}
		month := model.MonthOf(e.Date)
		if _, err := time.Parse("2006-01", month); err != nil {
			continue
		}
		counts[key{organ: aggregate.OrganLabel(e.Organ), month: month}]++
	}
	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].organ != keys[j].organ {
			return keys[i].organ < keys[j].organ
		}
		return keys[i].month < keys[j].month
	})

	var buf bytes.Buffer
	for _, k := range keys {
		ts, _ := time.Parse("2006-01", k.month)
		fmt.Fprintf(&buf, "%s{organ=\"%s\"} %d %d\n", MonthlyExitsMetric, escape(k.organ), counts[k], ts.UnixMilli())
	}
	return buf.Bytes()
}

// escape quotes a label value.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
