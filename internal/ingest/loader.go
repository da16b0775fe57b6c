// Package ingest loads batch utilisation documents into the store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jgoulah/devusage/pkg/models"
)

// SourceDateLayout is the only accepted source date format, e.g. "1-Jan-2025".
const SourceDateLayout = "2-Jan-2006"

// Upserter is the write side of the utilisation table.
type Upserter interface {
	UpsertUtilisation(ctx context.Context, rec models.UtilisationRecord) error
}

// SourceEntry is one element of the batch document.
type SourceEntry struct {
	DeviceID string    `json:"deviceID"`
	Date     string    `json:"date"`
	Values   []float64 `json:"values"`
}

// Summary reports what a run did.
type Summary struct {
	Read    int
	Stored  int
	Skipped int
}

// Loader normalises source entries and writes them through an Upserter.
// Runs are idempotent; two concurrent runs on the same key resolve to
// whichever write lands last.
type Loader struct {
	store Upserter
	log   *slog.Logger
}

func NewLoader(store Upserter, log *slog.Logger) *Loader {
	return &Loader{store: store, log: log}
}

// Load decodes a JSON array from r and upserts every entry that validates.
// Bad entries are logged and skipped. A document that is not an array, or
// any store failure, aborts the run.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Summary, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Summary{}, fmt.Errorf("decoding source document: %w", err)
	}

	var sum Summary
	for i, msg := range raw {
		sum.Read++

		var entry SourceEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			sum.Skipped++
			l.log.Warn("skipping malformed entry", slog.Int("index", i), slog.String("reason", err.Error()))
			continue
		}

		rec, err := entry.Record()
		if err != nil {
			sum.Skipped++
			l.log.Warn("skipping entry",
				slog.Int("index", i),
				slog.String("device_id", entry.DeviceID),
				slog.String("date", entry.Date),
				slog.String("reason", err.Error()),
			)
			continue
		}

		if err := l.store.UpsertUtilisation(ctx, rec); err != nil {
			return sum, fmt.Errorf("storing entry %d: %w", i, err)
		}
		sum.Stored++
	}

	l.log.Info("load complete",
		slog.Int("read", sum.Read),
		slog.Int("stored", sum.Stored),
		slog.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

var errMissingDevice = errors.New("missing deviceID")

// Record converts the entry into a storable record with a canonical date.
func (e SourceEntry) Record() (models.UtilisationRecord, error) {
	if strings.TrimSpace(e.DeviceID) == "" {
		return models.UtilisationRecord{}, errMissingDevice
	}

	date, err := NormalizeDate(e.Date)
	if err != nil {
		return models.UtilisationRecord{}, err
	}

	values := e.Values
	if values == nil {
		values = []float64{}
	}
	return models.UtilisationRecord{DeviceID: e.DeviceID, Date: date, Values: values}, nil
}

// NormalizeDate parses a source date like "1-Jan-2025" into a calendar date.
func NormalizeDate(s string) (time.Time, error) {
	d, err := time.Parse(SourceDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q", s)
	}
	return d, nil
}
