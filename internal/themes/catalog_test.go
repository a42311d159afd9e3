package themes

import (
	"strings"
	"testing"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogHasBothGenres(t *testing.T) {
	c := Default()
	assert.GreaterOrEqual(t, len(c.Genre(internal.GenreNormal)), 2)
	assert.GreaterOrEqual(t, len(c.Genre(internal.GenreAbnormal)), 2)
	assert.Equal(t, c.Len(), len(c.All()))
}

func TestReadCsvSkipsBadRecords(t *testing.T) {
	in := strings.Join([]string{
		"NORMAL,Hot,Cold,Boiling",
		"only,three,fields",
		"WEIRD,Text,a,b",
		"abnormal, Odd , low , high ",
	}, "\n")

	got, err := ReadCsv(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, internal.Theme{Text: "Odd", Min: "low", Max: "high", Genre: internal.GenreAbnormal}, got[1])
}

func TestPoolFallbacks(t *testing.T) {
	normal := internal.Theme{Text: "n", Genre: internal.GenreNormal}
	abnormal := internal.Theme{Text: "a", Genre: internal.GenreAbnormal}
	c := New(normal, abnormal)

	both := internal.Settings{IncludeNormalThemes: true, IncludeAbnormalThemes: true}
	assert.Len(t, c.Pool(both), 2)

	onlyAbnormal := internal.Settings{IncludeAbnormalThemes: true}
	assert.Equal(t, []internal.Theme{abnormal}, c.Pool(onlyAbnormal))

	none := internal.Settings{}
	assert.Equal(t, []internal.Theme{normal}, c.Pool(none), "nothing selected falls back to NORMAL")

	abnormalOnly := New(abnormal)
	assert.Equal(t, []internal.Theme{abnormal}, abnormalOnly.Pool(none), "no NORMAL themes falls back to everything")
}

func TestNewDropsDuplicateTexts(t *testing.T) {
	c := New(
		internal.Theme{Text: "x", Min: "first"},
		internal.Theme{Text: "x", Min: "second"},
	)
	require.Equal(t, 1, c.Len())
	got, ok := c.Find("x")
	require.True(t, ok)
	assert.Equal(t, "first", got.Min)
}
