package lookup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/lookup"
)

func TestApplyRule(t *testing.T) {
	tests := []struct {
		name  string
		rule  domain.DerivationRule
		value string
		want  string
		ok    bool
	}{
		{"uf from municipio", domain.DerivationRule{Target: "uf", Source: "municipio", Length: 2}, "2927408", "29", true},
		{"macro from municipio", domain.DerivationRule{Target: "macrorregiao", Source: "municipio", Length: 1}, "2927408", "2", true},
		{"subdistrito from setor", domain.DerivationRule{Target: "subdistrito", Source: "setor_censitario", Length: 11}, "2927408123456789", "29274081234", true},
		{"too short", domain.DerivationRule{Target: "uf", Source: "municipio", Length: 2}, "2", "", false},
		{"zero length", domain.DerivationRule{Target: "uf", Source: "municipio", Length: 0}, "29", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lookup.ApplyRule(tt.rule, tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyRules(t *testing.T) {
	withMun := domain.NewAnalysisUnit("1")
	withMun.Set(domain.LevelMunicipio, "3550308")
	without := domain.NewAnalysisUnit("2")

	lookup.ApplyRules([]*domain.AnalysisUnit{withMun, without}, domain.DefaultDerivationRules)

	uf, _ := withMun.Get(domain.LevelUF)
	macro, _ := withMun.Get(domain.LevelMacrorregiao)
	assert.Equal(t, "35", uf)
	assert.Equal(t, "3", macro)

	_, ok := without.Get(domain.LevelUF)
	assert.False(t, ok)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "2927408", lookup.NormalizeCode("2927408.0"))
	assert.Equal(t, "2927408", lookup.NormalizeCode(" 2927408 "))
	assert.Equal(t, "29.5", lookup.NormalizeCode("29.5"))
	assert.Equal(t, "", lookup.NormalizeCode(""))
}
