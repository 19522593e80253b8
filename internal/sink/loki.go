package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/util"
)

type lokiSink struct {
	cfg    config.LokiConfig
	client *http.Client
	now    func() time.Time
}

func NewLoki(cfg config.LokiConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &lokiSink{cfg: cfg, client: util.NewHTTPClient(to), now: time.Now}
}

func (l *lokiSink) Name() string { return "loki" }

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Push sends one stream per (organ, type) pair. Each line is the event as
// JSON, stamped with its effective date.
func (l *lokiSink) Push(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	type key struct {
		organ string
		typ   model.EventType
	}
	type entry struct {
		ts   int64
		line string
	}
	groups := map[key][]entry{}
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		ts := l.now()
		if d, err := model.ParseDate(e.Date); err == nil {
			ts = d
		}
		k := key{organ: e.Organ, typ: e.Type}
		groups[k] = append(groups[k], entry{ts: ts.UnixNano(), line: string(line)})
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].organ != keys[j].organ {
			return keys[i].organ < keys[j].organ
		}
		return keys[i].typ < keys[j].typ
	})

	payload := struct {
		Streams []lokiStream `json:"streams"`
	}{}
	for _, k := range keys {
		entries := groups[k]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })
		s := lokiStream{
			Stream: map[string]string{"job": l.cfg.Job, "organ": k.organ, "type": string(k.typ)},
		}
		for _, e := range entries {
			// Loki expects ns timestamp as a decimal string
			s.Values = append(s.Values, [2]string{strconv.FormatInt(e.ts, 10), e.line})
		}
		payload.Streams = append(payload.Streams, s)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if ua := l.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	_, err = util.Do(l.client, req)
	return err
}
