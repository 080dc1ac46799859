package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/repository/file"
)

const subdistritosJSON = `[
  {"id": 29274080511, "nome": "Sede",
   "distrito": {"id": 292740805, "nome": "Salvador",
     "municipio": {"id": 2927408, "nome": "Salvador",
       "microrregiao": {"id": 29021, "nome": "Salvador",
         "mesorregiao": {"id": 2905, "nome": "Metropolitana de Salvador",
           "UF": {"id": 29, "sigla": "BA", "regiao": {"id": 2, "sigla": "NE"}}}}}}},
  {"id": "35503080000", "nome": "Sao Paulo",
   "distrito": {"id": "355030800",
     "municipio": {"id": "3550308"}}},
  {"id": null, "nome": "broken"}
]`

func TestUnitSource_LoadUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis_units_subdistritos.json")
	require.NoError(t, os.WriteFile(path, []byte(subdistritosJSON), 0o644))

	units, err := file.NewUnitSource(path, domain.LevelSubdistrito, zap.NewNop()).LoadUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 2)

	salvador := units[0]
	assert.Equal(t, "29274080511", salvador.ID)
	expected := map[string]string{
		domain.LevelSubdistrito:  "29274080511",
		domain.LevelDistrito:     "292740805",
		domain.LevelMunicipio:    "2927408",
		domain.LevelMicrorregiao: "29021",
		domain.LevelMesorregiao:  "2905",
		domain.LevelUF:           "29",
		domain.LevelMacrorregiao: "2",
	}
	assert.Equal(t, expected, salvador.Columns)

	sp := units[1]
	v, ok := sp.Get(domain.LevelMunicipio)
	require.True(t, ok)
	assert.Equal(t, "3550308", v)
	_, ok = sp.Get(domain.LevelMesorregiao)
	assert.False(t, ok, "unresolved ancestors stay absent")
}

func TestUnitSource_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := file.NewUnitSource(path, domain.LevelMunicipio, zap.NewNop()).LoadUnits(context.Background())
	assert.Error(t, err)
}
