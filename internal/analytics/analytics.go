// Package analytics computes the daily device ranking and the per-hour
// utilisation series from stored records.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jgoulah/devusage/pkg/models"
)

// TopN is the fixed size of the daily ranking.
const TopN = 5

var (
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("start_date must not be after end_date")
)

// Store is the read side of the utilisation table.
type Store interface {
	RecordsOn(ctx context.Context, date string) ([]models.UtilisationRecord, error)
	RecordsBetween(ctx context.Context, deviceID, start, end string) ([]models.UtilisationRecord, error)
}

// Service answers ranking and hourly queries against a Store. It holds no
// mutable state and is safe for concurrent use.
type Service struct {
	store Store
}

// NewService returns a Service reading from store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// TopDevices returns up to TopN devices with the highest mean utilisation on date.
func (s *Service) TopDevices(ctx context.Context, date string) ([]models.DeviceAverage, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	recs, err := s.store.RecordsOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading records for %s: %w", date, err)
	}

	return Rank(recs, TopN), nil
}

// HourlyAverages returns the per-hour means for deviceID between start and end inclusive.
func (s *Service) HourlyAverages(ctx context.Context, deviceID, start, end string) ([]models.HourlyAverage, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	recs, err := s.store.RecordsBetween(ctx, deviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading records for %s: %w", deviceID, err)
	}

	out := make([]models.HourlyAverage, 0, len(recs)*models.HoursPerDay)
	for _, rec := range recs {
		out = append(out, Hourly(rec)...)
	}
	return out, nil
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, s)
	}
	return d, nil
}

// Mean returns the arithmetic mean of values; ok is false for an empty slice.
func Mean(values []float64) (mean float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rank orders records by descending mean, rounded to two decimals, and
// keeps the first n. Records without samples are left out. Equal rounded
// means keep their input order.
func Rank(recs []models.UtilisationRecord, n int) []models.DeviceAverage {
	out := make([]models.DeviceAverage, 0, len(recs))
	for _, rec := range recs {
		mean, ok := Mean(rec.Values)
		if !ok {
			continue
		}
		out = append(out, models.DeviceAverage{DeviceID: rec.DeviceID, AverageUtilisation: Round2(mean)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageUtilisation > out[j].AverageUtilisation
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Hourly splits a day's samples into HoursPerDay windows of SamplesPerHour.
// Window i covers samples [i*12, i*12+12). A short window is averaged over
// what it has, an empty one is skipped, and samples past the last window
// are ignored.
func Hourly(rec models.UtilisationRecord) []models.HourlyAverage {
	date := rec.DateString()
	out := make([]models.HourlyAverage, 0, models.HoursPerDay)

	for hour := 0; hour < models.HoursPerDay; hour++ {
		start := hour * models.SamplesPerHour
		if start >= len(rec.Values) {
			break
		}
		end := min(start+models.SamplesPerHour, len(rec.Values))

		mean, ok := Mean(rec.Values[start:end])
		if !ok {
			continue
		}
		out = append(out, models.HourlyAverage{
			Date:               date,
			Hour:               HourLabel(hour),
			AverageUtilisation: Round2(mean),
		})
	}
	return out
}

// HourLabel formats an hour index as "HH:00".
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
