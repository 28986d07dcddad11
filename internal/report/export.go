package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

var csvHeader = []string{"date", "close", "rsi", "macd", "ma_short", "ma_long", "signal"}

// WriteCSV writes the full indicator table
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Time.Format(dateLayout),
			formatFloat(row.Close),
			formatFloat(row.RSI),
			formatFloat(row.MACD),
			formatFloat(row.ShortMA),
			formatFloat(row.LongMA),
			row.Signal,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
