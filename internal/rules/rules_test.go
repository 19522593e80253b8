package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherUnicodeBoundaries(t *testing.T) {
	m := NewMatcher([]string{"rea"})
	// ASCII \b would treat "á" as a boundary
	assert.False(t, m.Match("área de tecnologia"))
	assert.True(t, m.Match("rea"))
	assert.True(t, m.Match("(rea)"))
}

func TestMatcherCaseAndWhitespace(t *testing.T) {
	m := NewMatcher([]string{"declarar vago", "exonerar"})
	assert.True(t, m.Match("RESOLVE DECLARAR   VAGO o cargo"))
	assert.True(t, m.Match("Exonerar, a pedido"))
	assert.False(t, m.Match("exonerarão"))
}

func TestMatcherQuotesMeta(t *testing.T) {
	m := NewMatcher([]string{"sr."})
	assert.True(t, m.Match("o sr. fulano"))
	assert.False(t, m.Match("o srx fulano"))
}

func TestMatcherEmpty(t *testing.T) {
	for _, m := range []*Matcher{NewMatcher(nil), NewMatcher([]string{"  "}), nil} {
		assert.False(t, m.Match("anything"))
		assert.Nil(t, m.Find("anything"))
		assert.Equal(t, -1, m.FindFirst("anything"))
	}
}

func TestMatcherFind(t *testing.T) {
	m := NewMatcher([]string{"ti", "informática"})
	text := "ti informática ti"
	assert.Equal(t, [][2]int{{0, 2}, {3, 15}, {16, 18}}, m.Find(text))
	assert.Equal(t, 0, m.FindFirst(text))
	assert.Equal(t, 6, m.FindFirst("área informática"))
}

func TestParse(t *testing.T) {
	r, err := Parse([]byte(`
entry_patterns: [nomear]
exit_patterns: [exonerar]
ti_keywords: [informática]
name_blacklist: [SECRETARIA]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"nomear"}, r.EntryPatterns)
	assert.Equal(t, []string{"SECRETARIA"}, r.NameBlacklist)
	assert.Equal(t, Defaults().RetirementKeywords, r.RetirementKeywords)
	assert.Equal(t, Defaults().NameCutWords, r.NameCutWords)
	assert.Empty(t, r.KnownNames)
}

func TestParseRejectsEmptyVocabulary(t *testing.T) {
	_, err := Parse([]byte(`ti_keywords: [informática]`))
	assert.Error(t, err)

	_, err = Parse([]byte(`entry_patterns: [`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exit_patterns: [vacância]\n"), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"vacância"}, r.ExitPatterns)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
