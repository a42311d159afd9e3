// Package themes holds the catalog of prompts a round can be played on.
package themes

import (
	"strings"

	"github.com/scythe504/wavelength-backend/internal"
)

type Catalog struct {
	themes []internal.Theme
}

// New builds a catalog; duplicate texts keep the first entry.
func New(themes ...internal.Theme) *Catalog {
	seen := make(map[string]bool, len(themes))
	c := &Catalog{}
	for _, t := range themes {
		if seen[t.Text] {
			continue
		}
		seen[t.Text] = true
		c.themes = append(c.themes, t)
	}
	return c
}

// Default returns the embedded catalog.
func Default() *Catalog {
	list, err := ReadCsv(strings.NewReader(defaultCSV))
	if err != nil {
		panic("themes: embedded catalog is malformed: " + err.Error())
	}
	return New(list...)
}

func (c *Catalog) All() []internal.Theme {
	return append([]internal.Theme(nil), c.themes...)
}

func (c *Catalog) Len() int {
	return len(c.themes)
}

func (c *Catalog) Genre(g internal.Genre) []internal.Theme {
	var out []internal.Theme
	for _, t := range c.themes {
		if t.Genre == g {
			out = append(out, t)
		}
	}
	return out
}

// Pool returns the themes the settings allow. With no genre selected it
// falls back to NORMAL, then to the whole catalog.
func (c *Catalog) Pool(settings internal.Settings) []internal.Theme {
	var pool []internal.Theme
	if settings.IncludeNormalThemes {
		pool = append(pool, c.Genre(internal.GenreNormal)...)
	}
	if settings.IncludeAbnormalThemes {
		pool = append(pool, c.Genre(internal.GenreAbnormal)...)
	}
	if len(pool) == 0 {
		pool = c.Genre(internal.GenreNormal)
	}
	if len(pool) == 0 {
		pool = c.All()
	}
	return pool
}

func (c *Catalog) Find(text string) (internal.Theme, bool) {
	for _, t := range c.themes {
		if t.Text == text {
			return t, true
		}
	}
	return internal.Theme{}, false
}
