package themes

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
)

//go:embed themes.csv
var defaultCSV string

// ReadCsv parses genre,text,min,max records. Malformed records are skipped
// and logged; a reader error is returned.
func ReadCsv(r io.Reader) ([]internal.Theme, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse themes csv: %w", err)
	}

	var out []internal.Theme
	for _, record := range records {
		if len(record) < 4 {
			log.Warn().Strs("record", record).Msg("[ReadCsv] Skipping invalid record")
			continue
		}
		genre := internal.Genre(strings.ToUpper(strings.TrimSpace(record[0])))
		if genre != internal.GenreNormal && genre != internal.GenreAbnormal {
			log.Warn().Str("genre", record[0]).Strs("record", record).Msg("[ReadCsv] Unknown genre")
			continue
		}
		theme := internal.Theme{
			Genre: genre,
			Text:  strings.TrimSpace(record[1]),
			Min:   strings.TrimSpace(record[2]),
			Max:   strings.TrimSpace(record[3]),
		}
		if theme.Text == "" {
			continue
		}
		out = append(out, theme)
	}
	return out, nil
}
