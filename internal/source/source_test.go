package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/store"
)

func TestNewFromConfig(t *testing.T) {
	s, err := NewFromConfig(config.SourceConfig{Type: "files", Name: "pages", Files: config.FilesConfig{Dir: "x"}}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "pages", s.Name())

	_, err = NewFromConfig(config.SourceConfig{Type: "ftp"}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestFilesSource(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("dejt_2024-03-05.txt", "pagina um")
	write("avulso.txt", "pagina dois")
	write("notas.md", "ignorada")

	s := NewFilesSource("", config.FilesConfig{Dir: dir}, Deps{DefaultDate: "2026-01-30"})
	docs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "avulso.txt", docs[0].Ref)
	assert.Equal(t, "2026-01-30", docs[0].Date)
	assert.Equal(t, "files", docs[0].Source)
	assert.Equal(t, "dejt_2024-03-05.txt", docs[1].ID)
	assert.Equal(t, "2024-03-05", docs[1].Date)
	assert.Equal(t, "pagina um", docs[1].Text)
}

func TestDateFromName(t *testing.T) {
	assert.Equal(t, "2024-03-05", dateFromName("DEJT20240305.txt"))
	assert.Equal(t, "", dateFromName("DEJT20241305.txt"))
	assert.Equal(t, "", dateFromName("page.txt"))
}

func TestParseRows(t *testing.T) {
	rows, err := parseRows([]byte(`{"rows":[
		{"data_publicacao":"2024-03-05","secao":"2","orgao":"Tribunal Regional do Trabalho da 5ª Região","texto":"Exonerar","url":"http://x/1"},
		{"date":"2024-03-06T10:00:00Z","text":"Nomear","id":42},
		{"date":"2024-03-06","text":""}
	]}`))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Date: "2024-03-05", Section: "2", Organ: "Tribunal Regional do Trabalho da 5ª Região", Text: "Exonerar", URL: "http://x/1"}, rows[0])
	assert.Equal(t, "42", rows[1].ID)
	assert.Equal(t, "2024-03-06", rows[1].Date)

	rows, err = parseRows([]byte(`[{"data_publicacao":"05/03/2024","texto_completo":"Vacância"}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-05", rows[0].Date)

	_, err = parseRows([]byte(`not json`))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	d := Render(Row{Date: "2024-03-05", Section: "2", Organ: "Tribunal Regional do Trabalho da 15ª Região", Text: "Exonerar FULANO.", URL: "http://x/1"})
	assert.Equal(t, "http://x/1", d.ID)
	assert.Equal(t, "DOU_2024-03-05", d.Ref)
	assert.Equal(t, "TRT15", d.Organ)
	assert.True(t, strings.HasPrefix(d.Text, "DATA: 2024-03-05\nFONTE: DOU Seção 2\nORGAO: Tribunal Regional do Trabalho da 15ª Região\nURL: http://x/1\n---\n"))
	assert.True(t, strings.HasSuffix(d.Text, "Exonerar FULANO."))

	a := Render(Row{Date: "2024-03-05", Text: "a"})
	b := Render(Row{Date: "2024-03-05", Text: "a"})
	assert.Equal(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

func TestOrganHint(t *testing.T) {
	assert.Equal(t, "TRT5", OrganHint("TRIBUNAL REGIONAL DO TRABALHO DA 5ª REGIÃO"))
	assert.Equal(t, "TRT2", OrganHint("trt-2"))
	assert.Equal(t, "", OrganHint("Ministério da Economia"))
}

type archive struct {
	calls    atomic.Int32
	failures atomic.Int32 // 503s still to serve
	total    int
}

func (a *archive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.calls.Add(1)
	if a.failures.Load() > 0 {
		a.failures.Add(-1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	var rows []map[string]any
	for i := offset; i < a.total && i < offset+limit; i++ {
		rows = append(rows, map[string]any{
			"id":              strconv.Itoa(i),
			"data_publicacao": "2024-03-0" + strconv.Itoa(i+1),
			"texto":           "ato " + strconv.Itoa(i) + " " + strings.Join(q["any"], ","),
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"rows": rows})
}

func testGazette(t *testing.T, url string) config.GazetteConfig {
	dir := t.TempDir()
	return config.GazetteConfig{
		BaseURL:   url,
		ActTerms:  []string{"vago", "posse"},
		OrganTerm: "tribunal regional do trabalho",
		Start:     "2024-03-01",
		End:       "2024-03-31",
		PageSize:  2,
		MaxPages:  5,
		Delay:     time.Millisecond,
		StatePath: filepath.Join(dir, "state.json"),
		CachePath: filepath.Join(dir, "cache.db"),
		HTTP:      config.HTTPConfig{MaxRetries: 3, Backoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}
}

func TestGazetteFetchPagesRetriesAndCaches(t *testing.T) {
	arch := &archive{total: 3}
	arch.failures.Store(1)
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testGazette(t, srv.URL)
	g, err := NewGazetteSource("dou", cfg, Deps{})
	require.NoError(t, err)
	defer g.Close()

	docs, err := g.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	// one 503, then two pages
	assert.Equal(t, int32(3), arch.calls.Load())
	assert.Equal(t, "dou", docs[0].Source)
	assert.Equal(t, "0", docs[0].ID)
	assert.Contains(t, docs[0].Text, "ato 0 vago,posse")

	st, err := store.LoadGazetteState(cfg.StatePath)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", st.LastPublished)

	docs, err = g.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, int32(3), arch.calls.Load())
}

func TestGazetteFetchGivesUp(t *testing.T) {
	arch := &archive{total: 1}
	arch.failures.Store(10)
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testGazette(t, srv.URL)
	cfg.CachePath = ""
	g, err := NewGazetteSource("dou", cfg, Deps{})
	require.NoError(t, err)

	_, err = g.Fetch(context.Background())
	assert.ErrorContains(t, err, "503")
	assert.Equal(t, int32(3), arch.calls.Load())
}

func TestGazetteWindowFromState(t *testing.T) {
	cfg := testGazette(t, "http://unused")
	cfg.Start, cfg.End = "", ""
	require.NoError(t, store.SaveGazetteState(cfg.StatePath, store.GazetteState{LastPublished: "2024-03-10"}))

	g, err := NewGazetteSource("dou", cfg, Deps{})
	require.NoError(t, err)
	defer g.Close()
	g.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	start, end, err := g.window()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", start)
	assert.Equal(t, "2024-03-15", end)

	cfg.StatePath = ""
	cfg.LookbackDays = 3
	g2, err := NewGazetteSource("dou", cfg, Deps{})
	require.NoError(t, err)
	defer g2.Close()
	g2.now = g.now
	start, _, err = g2.window()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-12", start)
}

func TestGazetteSearch(t *testing.T) {
	arch := &archive{total: 1}
	srv := httptest.NewServer(arch)
	defer srv.Close()

	g, err := NewGazetteSource("dou", testGazette(t, srv.URL), Deps{})
	require.NoError(t, err)
	defer g.Close()

	q := Query{Start: "2024-03-01", End: "2024-03-04", All: []string{"ana lima"}, Any: []string{"nome"}, Limit: 1}
	rows, err := g.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ato 0 nome", rows[0].Text)

	_, err = g.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(1), arch.calls.Load())
}
