package models

import "time"

// TimeOfDay buckets the local hour for salutation phrasing.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
)

// TimeOfDayAt returns the bucket for the given instant.
// Morning runs until noon, afternoon until 18:00, evening after that.
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return TimeOfDayMorning
	case h >= 12 && h < 18:
		return TimeOfDayAfternoon
	default:
		return TimeOfDayEvening
	}
}

// Greeting returns the salutation for the bucket (pt-BR, the platform locale).
func (t TimeOfDay) Greeting() string {
	switch t {
	case TimeOfDayMorning:
		return "Bom dia"
	case TimeOfDayAfternoon:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

// ResponseContext is the render context assembled fresh for every message.
// It is never cached across turns: PatientName may only become known as the
// conversation collects more data.
type ResponseContext struct {
	BotName     string
	ClientName  string // Tenant display name
	PatientName string // Optional, personalizes the response when present
	TimeOfDay   TimeOfDay
}
