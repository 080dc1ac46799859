package lookup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/lookup"
)

func TestJoinClusters_RenamesAndFillsSentinel(t *testing.T) {
	units := []*domain.AnalysisUnit{municipio("2927408"), municipio("1100015")}
	table := &domain.Table{
		Header: []string{"COD", "NOME", "POP", "COD_BM", "NOME_BM", "COD_ALTA", "NOME_ALTA"},
		Rows: [][]string{
			{"2927408.0", "Salvador", "2872347", "2927408", "Salvador", "2927408", "Salvador"},
		},
	}
	cfg := domain.ClusterSourceConfig{
		Name:       "regic",
		KeyColumn:  "municipio",
		UnitColumn: domain.LevelMunicipio,
		Header:     []string{"municipio", "nm_mun", "pop18", "cd_baixa_media", "nm_baixa_media", "cd_alta", "nm_alta"},
		Columns:    map[string]string{"cd_baixa_media": "cd_baixa_media", "cd_alta": "cd_alta"},
	}

	stats, err := lookup.JoinClusters(units, table, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)
	assert.ElementsMatch(t, []string{"cd_baixa_media", "cd_alta"}, stats.Columns)

	v, _ := units[0].Get("cd_alta")
	assert.Equal(t, "2927408", v)

	v, ok := units[1].Get("cd_alta")
	require.True(t, ok)
	assert.Equal(t, "", v, "unmatched units get the empty sentinel")

	_, ok = units[0].Get("nm_mun")
	assert.False(t, ok, "unmapped columns are not joined")
}

func TestJoinClusters_Pivot(t *testing.T) {
	units := []*domain.AnalysisUnit{municipio("2927408"), municipio("2927409")}
	table := &domain.Table{
		Header: []string{"cd_mun_origem", "tp_rel", "cd_mun_dest"},
		Rows: [][]string{
			{"2927408", "alta", "2927408"},
			{"2927408", "baixa_media", "2927408"},
			{"2927409", "alta", "2927408"},
			{"2927409", "alta", "2900000"},
			{"2927409", "influencia", "2927408"},
		},
	}
	cfg := domain.ClusterSourceConfig{
		Name:       "regic_ext",
		KeyColumn:  "cd_mun_origem",
		UnitColumn: domain.LevelMunicipio,
		Pivot:      &domain.PivotConfig{Columns: "tp_rel", Values: "cd_mun_dest"},
		Columns: map[string]string{
			"alta":        "cd_alta_ext",
			"baixa_media": "cd_baixa_media_ext",
			"influencia":  "cd_influencia_ext",
		},
	}

	stats, err := lookup.JoinClusters(units, table, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Matched)

	v, _ := units[1].Get("cd_alta_ext")
	assert.Equal(t, "2927408", v, "first relation wins on duplicates")
	v, ok := units[1].Get("cd_baixa_media_ext")
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestJoinClusters_MissingKeyColumn(t *testing.T) {
	_, err := lookup.JoinClusters(nil, &domain.Table{Header: []string{"a"}}, domain.ClusterSourceConfig{Name: "x", KeyColumn: "b"})
	assert.Error(t, err)
}

func TestApplyFilter(t *testing.T) {
	table := domain.NewLookupTable([]*domain.AnalysisUnit{municipio("2927408"), municipio("2927409"), domain.NewAnalysisUnit("x")})
	filter := &domain.Table{Header: []string{"CD_MUN"}, Rows: [][]string{{"2927409.0"}}}

	out, err := lookup.ApplyFilter(table, filter, domain.FilterConfig{
		Name: "aglomerados_subnormais", Column: "CD_MUN", JoinColumn: domain.LevelMunicipio,
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "2927409", out.Units[0].ID)
	assert.Equal(t, 3, table.Len())

	_, err = lookup.ApplyFilter(table, filter, domain.FilterConfig{Name: "f", Column: "missing"})
	assert.Error(t, err)
}
