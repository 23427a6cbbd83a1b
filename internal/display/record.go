package display

import (
	"time"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// Placeholder is printed for a prayer with no time on a date.
const Placeholder = "--:--"

// TimeLayout maps a configured time format ("12h" or "24h") to a Go layout.
func TimeLayout(format string) string {
	if format == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// FormatTime renders a stored "HH:MM" string with layout.
func FormatTime(hhmm, layout string) string {
	if hhmm == "" {
		return Placeholder
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format(layout)
}

// RecordTable lays out one row per record with a column per prayer in names.
// The row whose date equals today is highlighted.
func RecordTable(recs []prayer.Record, names []string, today, layout string) *Table {
	headers := append([]string{"Date"}, names...)
	tbl := NewTable(headers)

	for i, rec := range recs {
		label := rec.Date
		if d, err := time.Parse(prayer.DateLayout, rec.Date); err == nil {
			label = d.Format("Mon 02 Jan")
		}

		row := []string{label}
		for _, name := range names {
			hhmm, _ := rec.Time(name)
			row = append(row, FormatTime(hhmm, layout))
		}
		tbl.AddRow(row)

		if rec.Date == today {
			tbl.SetHighlightRow(i)
		}
	}
	return tbl
}
