package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jgoulah/devusage/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection pool
type DB struct {
	conn *sql.DB
}

// New opens the SQLite file at dbPath and initializes the schema
func New(dbPath string, busyTimeoutMS int) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", dbPath, busyTimeoutMS)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// FromConn wraps an already open pool without touching the schema
func FromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the store is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// initSchema creates the utilisation table
func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS device_utilisation (
		device_id TEXT NOT NULL,
		record_date TEXT NOT NULL,
		utilisation_values TEXT NOT NULL,
		PRIMARY KEY (device_id, record_date)
	);
	CREATE INDEX IF NOT EXISTS idx_utilisation_date ON device_utilisation(record_date);
	`

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

// UpsertUtilisation inserts a record, replacing any row with the same device and date
func (db *DB) UpsertUtilisation(ctx context.Context, rec models.UtilisationRecord) error {
	query := `
	INSERT INTO device_utilisation (device_id, record_date, utilisation_values)
	VALUES (?, ?, ?)
	ON CONFLICT(device_id, record_date) DO UPDATE SET utilisation_values = excluded.utilisation_values
	`

	values := rec.Values
	if values == nil {
		values = []float64{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding utilisation values: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, rec.DeviceID, rec.DateString(), string(encoded)); err != nil {
		return fmt.Errorf("upserting utilisation for %s on %s: %w", rec.DeviceID, rec.DateString(), err)
	}

	return nil
}

// RecordsOn returns every device's record for a date, in insertion order
func (db *DB) RecordsOn(ctx context.Context, date string) ([]models.UtilisationRecord, error) {
	query := `
	SELECT device_id, record_date, utilisation_values
	FROM device_utilisation
	WHERE record_date = ?
	ORDER BY rowid
	`

	rows, err := db.conn.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("querying utilisation for %s: %w", date, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// RecordsBetween returns a device's records with start <= record_date <= end, oldest first
func (db *DB) RecordsBetween(ctx context.Context, deviceID, start, end string) ([]models.UtilisationRecord, error) {
	query := `
	SELECT device_id, record_date, utilisation_values
	FROM device_utilisation
	WHERE device_id = ? AND record_date BETWEEN ? AND ?
	ORDER BY record_date
	`

	rows, err := db.conn.QueryContext(ctx, query, deviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying utilisation for %s: %w", deviceID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRecords returns stored records, optionally filtered by device and date, ordered by date then device
func (db *DB) ListRecords(ctx context.Context, deviceID, date string) ([]models.UtilisationRecord, error) {
	query := `
	SELECT device_id, record_date, utilisation_values
	FROM device_utilisation
	WHERE (? = '' OR device_id = ?) AND (? = '' OR record_date = ?)
	ORDER BY record_date, device_id
	`

	rows, err := db.conn.QueryContext(ctx, query, deviceID, deviceID, date, date)
	if err != nil {
		return nil, fmt.Errorf("listing utilisation: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the number of stored rows
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM device_utilisation`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting utilisation rows: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]models.UtilisationRecord, error) {
	var results []models.UtilisationRecord
	for rows.Next() {
		var rec models.UtilisationRecord
		var dateStr, valuesStr string

		if err := rows.Scan(&rec.DeviceID, &dateStr, &valuesStr); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		date, err := time.Parse(models.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing record_date %q: %w", dateStr, err)
		}
		rec.Date = date

		if err := json.Unmarshal([]byte(valuesStr), &rec.Values); err != nil {
			return nil, fmt.Errorf("decoding utilisation values for %s on %s: %w", rec.DeviceID, dateStr, err)
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}
