package models

import "time"

const (
	// SamplesPerHour is the number of 5-minute samples in one clock hour
	SamplesPerHour = 12
	// HoursPerDay is the number of hourly windows in a day
	HoursPerDay = 24
	// SamplesPerDay is the expected length of a day's sample sequence
	SamplesPerDay = SamplesPerHour * HoursPerDay

	// DateLayout is the canonical storage form of a record date (YYYY-MM-DD)
	DateLayout = "2006-01-02"
)

// UtilisationRecord represents one device's samples for a single day
type UtilisationRecord struct {
	DeviceID string    `json:"device_id"`
	Date     time.Time `json:"-"` // Calendar date only, rendered via DateString
	Values   []float64 `json:"utilisation_values"`
}

// DateString returns the record date in canonical form
func (r UtilisationRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// DeviceAverage is one entry of a daily ranking
type DeviceAverage struct {
	DeviceID           string  `json:"device_id"`
	AverageUtilisation float64 `json:"average_utilisation"`
}

// HourlyAverage is the mean utilisation of one device for one clock hour
type HourlyAverage struct {
	Date               string  `json:"date"`
	Hour               string  `json:"hour"` // "HH:00"
	AverageUtilisation float64 `json:"average_utilisation"`
}
