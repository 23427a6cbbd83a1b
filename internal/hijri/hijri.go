// Package hijri converts Gregorian dates to the tabular (arithmetic) Islamic
// calendar. The tabular calendar can differ by a day or two from a calendar
// based on moon sighting; Offset on Converter lets a community align it.
package hijri

import (
	"fmt"
	"time"

	gohijri "github.com/hablullah/go-hijri"
)

// MonthNames are the twelve Hijri months, Muharram first.
var MonthNames = [12]string{
	"Muharram", "Safar", "Rabi al-Awwal", "Rabi al-Thani",
	"Jumada al-Ula", "Jumada al-Akhirah", "Rajab", "Shaban",
	"Ramadan", "Shawwal", "Dhu al-Qadah", "Dhu al-Hijjah",
}

// Date is a day of the Hijri calendar.
type Date struct {
	Year  int
	Month int // 1..12
	Day   int // 1..30
}

// MonthName returns the English transliteration of the month.
func (d Date) MonthName() string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}
	return MonthNames[d.Month-1]
}

// String returns the date as "DD MonthName YYYY AH".
func (d Date) String() string {
	if d.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s %d AH", d.Day, d.MonthName(), d.Year)
}

// Converter applies a fixed day offset before converting.
type Converter struct {
	Offset int
}

// FromGregorian converts the calendar date of t with the converter's offset.
func (c Converter) FromGregorian(t time.Time) Date {
	return FromGregorian(t.AddDate(0, 0, c.Offset))
}

// FromGregorian converts the calendar date of t (in t's own location) using
// the common 30-year cycle with leap years 2, 5, 7, 10, 13, 16, 18, 21, 24, 26
// and 29. Dates before 16 July 622 have no Hijri date and return the zero Date.
func FromGregorian(t time.Time) Date {
	y, m, d := t.Date()
	h, err := gohijri.CreateHijriDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC), gohijri.Default)
	if err != nil {
		return Date{}
	}
	return Date{Year: int(h.Year), Month: int(h.Month), Day: int(h.Day)}
}
