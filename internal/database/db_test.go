package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jgoulah/devusage/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "analytics.db"), 1000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func TestSchemaCreationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.db")
	for i := 0; i < 2; i++ {
		db, err := New(path, 1000)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		db.Close()
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := models.UtilisationRecord{DeviceID: "A", Date: day(t, "2025-01-01"), Values: []float64{1, 2}}
	second := models.UtilisationRecord{DeviceID: "A", Date: day(t, "2025-01-01"), Values: []float64{9}}
	for _, rec := range []models.UtilisationRecord{first, second} {
		if err := db.UpsertUtilisation(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	n, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	recs, err := db.RecordsOn(ctx, "2025-01-01")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recs) != 1 || len(recs[0].Values) != 1 || recs[0].Values[0] != 9 {
		t.Fatalf("row not replaced: %+v", recs)
	}
}

func TestRecordsOnKeepsInsertionOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		rec := models.UtilisationRecord{DeviceID: id, Date: day(t, "2025-01-02"), Values: []float64{1}}
		if err := db.UpsertUtilisation(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	other := models.UtilisationRecord{DeviceID: "alpha", Date: day(t, "2025-01-03"), Values: []float64{1}}
	if err := db.UpsertUtilisation(ctx, other); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	recs, err := db.RecordsOn(ctx, "2025-01-02")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	var got []string
	for _, r := range recs {
		got = append(got, r.DeviceID)
	}
	want := []string{"zeta", "alpha", "mid"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestRecordsBetweenIsInclusiveAndOrdered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, d := range []string{"2025-01-05", "2025-01-01", "2025-01-03", "2025-01-07"} {
		rec := models.UtilisationRecord{DeviceID: "dev", Date: day(t, d), Values: []float64{1}}
		if err := db.UpsertUtilisation(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	noise := models.UtilisationRecord{DeviceID: "other", Date: day(t, "2025-01-03"), Values: []float64{1}}
	if err := db.UpsertUtilisation(ctx, noise); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	recs, err := db.RecordsBetween(ctx, "dev", "2025-01-01", "2025-01-05")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	want := []string{"2025-01-01", "2025-01-03", "2025-01-05"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, r := range recs {
		if r.DeviceID != "dev" || r.DateString() != want[i] {
			t.Fatalf("record %d = %s/%s", i, r.DeviceID, r.DateString())
		}
	}
}

func TestListRecordsFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, rec := range []models.UtilisationRecord{
		{DeviceID: "b", Date: day(t, "2025-01-01"), Values: []float64{1}},
		{DeviceID: "a", Date: day(t, "2025-01-01"), Values: []float64{1}},
		{DeviceID: "a", Date: day(t, "2025-01-02"), Values: []float64{1}},
	} {
		if err := db.UpsertUtilisation(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	all, err := db.ListRecords(ctx, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].DeviceID != "a" || all[1].DeviceID != "b" {
		t.Fatalf("unexpected order: %+v", all)
	}

	byDevice, err := db.ListRecords(ctx, "a", "")
	if err != nil || len(byDevice) != 2 {
		t.Fatalf("device filter: %v %+v", err, byDevice)
	}
	byDate, err := db.ListRecords(ctx, "", "2025-01-02")
	if err != nil || len(byDate) != 1 {
		t.Fatalf("date filter: %v %+v", err, byDate)
	}
}

func TestNilValuesStoredAsEmptyArray(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertUtilisation(ctx, models.UtilisationRecord{DeviceID: "x", Date: day(t, "2025-02-01")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	recs, err := db.RecordsOn(ctx, "2025-02-01")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recs) != 1 || len(recs[0].Values) != 0 {
		t.Fatalf("got %+v", recs)
	}
}

func TestQueryErrorIsWrapped(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT device_id, record_date, utilisation_values").
		WithArgs("2025-01-01").
		WillReturnError(boom)

	_, err = FromConn(conn).RecordsOn(context.Background(), "2025-01-01")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCorruptValuesFailScan(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	rows := sqlmock.NewRows([]string{"device_id", "record_date", "utilisation_values"}).
		AddRow("dev", "2025-01-01", "not-json")
	mock.ExpectQuery("SELECT device_id, record_date, utilisation_values").WillReturnRows(rows)

	if _, err := FromConn(conn).RecordsBetween(context.Background(), "dev", "2025-01-01", "2025-01-02"); err == nil {
		t.Fatal("expected decode error")
	}
}
