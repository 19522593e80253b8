// Package rules holds the externally supplied vocabulary that drives act
// classification and name extraction.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules mirrors rules.yaml. The six keyword lists are the classification
// inputs; the remaining lists tune name and reason extraction and fall back
// to Defaults when absent.
type Rules struct {
	SkipPatterns           []string `yaml:"skip_patterns"`
	EntryPatterns          []string `yaml:"entry_patterns"`
	ExitPatterns           []string `yaml:"exit_patterns"`
	TIKeywords             []string `yaml:"ti_keywords"`
	JudiciarioKeywords     []string `yaml:"judiciario_keywords"`
	ForaJudiciarioKeywords []string `yaml:"fora_judiciario_keywords"`

	RetirementKeywords []string `yaml:"retirement_keywords"`
	DeathKeywords      []string `yaml:"death_keywords"`

	NameBlacklist []string `yaml:"name_blacklist"`
	NameCutWords  []string `yaml:"name_cut_words"`
	RolePrefixes  []string `yaml:"role_prefixes"`
	KnownNames    []string `yaml:"known_names"`
}

// Load reads a YAML rules file and fills unset auxiliary lists from Defaults.
func Load(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return Parse(b)
}

// Parse decodes rules from YAML bytes.
func Parse(b []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if len(r.ExitPatterns) == 0 && len(r.EntryPatterns) == 0 {
		return Rules{}, fmt.Errorf("rules: need entry_patterns or exit_patterns")
	}
	r.fillDefaults()
	return r, nil
}

func (r *Rules) fillDefaults() {
	d := Defaults()
	if len(r.RetirementKeywords) == 0 {
		r.RetirementKeywords = d.RetirementKeywords
	}
	if len(r.DeathKeywords) == 0 {
		r.DeathKeywords = d.DeathKeywords
	}
	if len(r.NameBlacklist) == 0 {
		r.NameBlacklist = d.NameBlacklist
	}
	if len(r.NameCutWords) == 0 {
		r.NameCutWords = d.NameCutWords
	}
	if len(r.RolePrefixes) == 0 {
		r.RolePrefixes = d.RolePrefixes
	}
}

// Defaults returns the built-in vocabulary. Keyword lists for the classifier
// gate are included so the package is usable without a rules file in tests.
func Defaults() Rules {
	return Rules{
		SkipPatterns: []string{
			"tornar sem efeito", "tornar insubsistente", "retificar", "retificação", "republicação",
		},
		EntryPatterns: []string{
			"nomear", "nomeação", "nomeado", "nomeada",
		},
		ExitPatterns: []string{
			"exonerar", "exoneração", "vacância", "declarar vago", "declarar a vacância",
			"aposentar", "aposentadoria", "falecimento", "demitir", "demissão",
		},
		TIKeywords: []string{
			"tecnologia da informação", "apoio especializado", "informática", "TI",
		},
		JudiciarioKeywords: []string{
			"tribunal", "TRT", "TRF", "TRE", "TJ", "justiça do trabalho", "justiça federal",
			"justiça eleitoral", "poder judiciário", "conselho superior da justiça do trabalho",
		},
		ForaJudiciarioKeywords: []string{
			"ministério", "secretaria de estado", "prefeitura", "universidade", "instituto federal",
			"receita federal", "banco central", "polícia federal", "agência", "autarquia",
			"governo do estado", "assembleia legislativa", "câmara dos deputados", "senado federal",
			"tribunal de contas", "ministério público", "advocacia-geral",
		},
		RetirementKeywords: []string{
			"aposentadoria", "aposentar", "aposentado", "aposentada", "inatividade",
		},
		DeathKeywords: []string{
			"falecimento", "falecido", "falecida", "óbito",
		},
		NameBlacklist: []string{
			"TRIBUNAL", "REGIONAL DO TRABALHO", "SECRETARIA", "COORDENADORIA", "DEPARTAMENTO",
			"DIRETORIA", "DIVISÃO", "SEÇÃO DE", "NÚCLEO DE", "GABINETE", "PRESIDÊNCIA",
			"TECNOLOGIA DA INFORMAÇÃO", "APOIO ESPECIALIZADO", "ANALISTA JUDICIÁRIO",
			"TÉCNICO JUDICIÁRIO", "QUADRO DE PESSOAL", "PODER JUDICIÁRIO", "JUSTIÇA DO TRABALHO",
			"PORTARIA", "RESOLUÇÃO", "ATO CONJUNTO", "LEI Nº", "ARTIGO", "INCISO", "PARÁGRAFO",
			"DIÁRIO OFICIAL", "CARGO EFETIVO", "CARGO PÚBLICO", "REGIÃO", "PRESIDENTE", "DIRETOR",
			" DE JANEIRO", " DE FEVEREIRO", " DE MARÇO", " DE ABRIL", " DE MAIO", " DE JUNHO",
			" DE JULHO", " DE AGOSTO", " DE SETEMBRO", " DE OUTUBRO", " DE NOVEMBRO", " DE DEZEMBRO",
		},
		NameCutWords: []string{
			",", ";", "matrícula", "matricula", "para", "em virtude", "a partir", "a contar",
			"do cargo", "no cargo", "ocupante", "cpf", "lotado", "lotada", "código", "classe",
			"padrão", "nos termos", "com fundamento", "e dá", "tendo em vista",
		},
		RolePrefixes: []string{
			"servidor", "servidora", "senhor", "senhora", "sr.", "sra.", "candidato", "candidata",
			"analista judiciário", "técnico judiciário", "técnica judiciária", "auxiliar judiciário",
			"o", "a",
		},
	}
}
