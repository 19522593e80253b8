package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/rules"
)

func TestGateEvaluate(t *testing.T) {
	g := NewGate(rules.Defaults())

	tests := []struct {
		name  string
		block string
		want  Verdict
	}{
		{
			name:  "retraction rejected before exit",
			block: "Tornar sem efeito a exoneração do servidor da Secretaria de Tecnologia da Informação.",
			want:  VerdictSkipped,
		},
		{
			name:  "exit in domain",
			block: "Exonerar o servidor lotado na Secretaria de Tecnologia da Informação.",
			want:  VerdictExit,
		},
		{
			name:  "nomination into a vacancy is an entry",
			block: "Nomear para o cargo de Analista, em vaga decorrente da vacância, área de Tecnologia da Informação.",
			want:  VerdictEntry,
		},
		{
			name:  "exit outside domain",
			block: "Exonerar o servidor lotado na Secretaria de Gestão de Pessoas.",
			want:  VerdictOffDomain,
		},
		{
			name:  "no act",
			block: "Designar comissão de tecnologia da informação para estudos.",
			want:  VerdictNoAct,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Evaluate(tt.block))
		})
	}
}

func TestGateClassify(t *testing.T) {
	g := NewGate(rules.Defaults())

	typ, ok := g.Classify("Declarar vago o cargo de Técnico, especialidade Informática.")
	assert.True(t, ok)
	assert.Equal(t, model.Exit, typ)

	_, ok = g.Classify("Retificar a Portaria que declarou vago o cargo de Técnico de Informática.")
	assert.False(t, ok)
}
