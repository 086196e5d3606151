package game

import "fmt"

// Date is the in-game calendar position. The campaign starts on a fixed
// June 1403 date; rollovers use real month lengths (February always 28).
type Date struct {
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	DayOfGame int    `json:"dayOfGame"`
	Hour      int    `json:"hour"`
	TimeOfDay string `json:"timeOfDay"`
}

const (
	StartDay   = 12
	StartMonth = 6
	StartYear  = 1403
	StartHour  = 9
)

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

var monthNames = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

func StartDate() Date {
	d := Date{Day: StartDay, Month: StartMonth, Year: StartYear, DayOfGame: 1, Hour: StartHour}
	d.TimeOfDay = timeOfDay(d.Hour)
	return d
}

// Advance moves the clock forward by the given hours, rolling days, months
// and years as needed, and recomputes the time-of-day bucket.
func (d *Date) Advance(hours int) {
	if hours <= 0 {
		d.TimeOfDay = timeOfDay(d.Hour)
		return
	}
	d.Hour += hours
	for d.Hour >= 24 {
		d.Hour -= 24
		d.Day++
		d.DayOfGame++
		if d.Day > daysInMonth[d.Month-1] {
			d.Day = 1
			d.Month++
			if d.Month > 12 {
				d.Month = 1
				d.Year++
			}
		}
	}
	d.TimeOfDay = timeOfDay(d.Hour)
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "утро"
	case hour >= 12 && hour < 18:
		return "день"
	case hour >= 18 && hour < 22:
		return "вечер"
	default:
		return "ночь"
	}
}

// Format renders the date the way scene prompts expect it, e.g.
// "12 июня 1403 года".
func (d Date) Format() string {
	m := d.Month
	if m < 1 || m > 12 {
		m = 1
	}
	return fmt.Sprintf("%d %s %d года", d.Day, monthNames[m-1], d.Year)
}
