package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boundary-pipeline/internal/usecase"
)

func TestCleanMapPath(t *testing.T) {
	ok := map[string]string{
		"geojson/uf/municipio/29_q0.json":     "geojson/uf/municipio/29_q0.json",
		"topojson/uf/municipio/29_q1.json":    "topojson/uf/municipio/29_q1.json",
		"topojson//uf/./municipio/29_q1.json": "topojson/uf/municipio/29_q1.json",
	}
	for in, want := range ok {
		got, valid := usecase.CleanMapPath(in)
		assert.True(t, valid, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{
		"",
		"pipeline.yaml",
		"geojson/../units.json",
		"topojson/uf/../../../etc/passwd.json",
		"geojson/uf/29_q0.txt",
		"geojson/uf/.29_q0.json.tmp-1.json",
		"geojson\\uf\\29_q0.json",
		"other/uf/29_q0.json",
	} {
		_, valid := usecase.CleanMapPath(bad)
		assert.False(t, valid, bad)
	}
}
