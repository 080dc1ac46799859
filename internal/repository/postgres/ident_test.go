package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	q, err := quoteIdent("ibge.analysis_units")
	require.NoError(t, err)
	assert.Equal(t, `"ibge"."analysis_units"`, q)

	for _, bad := range []string{"", "1abc", "a b", `x"y`, "a.b.c", "uf;drop"} {
		_, err := quoteIdent(bad)
		assert.Error(t, err, bad)
	}
}

func TestUnitQuery(t *testing.T) {
	r := &unitRepository{
		table:   "analysis_units",
		level:   "municipio",
		columns: map[string]string{"uf": "uf_code", "municipio": "cd_mun"},
	}
	q, levels, err := r.query()
	require.NoError(t, err)
	assert.Equal(t, []string{"municipio", "uf"}, levels)
	assert.Equal(t, `SELECT "cd_mun"::text, "cd_mun"::text, "uf_code"::text FROM "analysis_units" ORDER BY 1`, q)
}
