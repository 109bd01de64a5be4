// Package storage keeps a local log of every decoded telemetry frame, so a
// flight can be replayed later even when no uplink was enabled.
package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sondewatch/client/internal/client/decode"
)

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS frames (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    frame       INTEGER NOT NULL,
    sonde_id    TEXT    NOT NULL,
    date        TEXT    NOT NULL,
    time        TEXT    NOT NULL,
    lat         REAL    NOT NULL,
    lon         REAL    NOT NULL,
    alt         REAL    NOT NULL,
    vel_h       REAL    NOT NULL,
    heading     REAL    NOT NULL,
    vel_v       REAL    NOT NULL,
    crc         TEXT    NOT NULL,
    temperature REAL    NOT NULL,
    humidity    REAL    NOT NULL,
    freq        TEXT    NOT NULL,
    sonde_type  TEXT    NOT NULL,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_frames_sonde_id ON frames(sonde_id);
`

const insertFrameSQL = `
INSERT INTO frames (
    frame, sonde_id, date, time, lat, lon, alt,
    vel_h, heading, vel_v, crc, temperature, humidity, freq, sonde_type
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SqliteStore is a write-only frame log backed by a single sqlite database.
type SqliteStore struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.dbPath))
		if err != nil {
			s.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.db = db
	})

	return s.db, s.dbErr
}

// InsertFrame appends one validated telemetry frame to the log.
func (s *SqliteStore) InsertFrame(rec *decode.Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	if _, err := db.Exec(insertFrameSQL,
		rec.Frame, rec.ID, rec.Date, rec.Time, rec.Lat, rec.Lon, rec.Alt,
		rec.VelH, rec.Heading, rec.VelV, rec.CRC, rec.Temperature, rec.Humidity,
		rec.FreqLabel, rec.Type.String(),
	); err != nil {
		return fmt.Errorf("inserting frame: %w", err)
	}

	return nil
}

// FrameCount reports the number of stored frames for a sonde id.
func (s *SqliteStore) FrameCount(sondeID string) (int, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM frames WHERE sonde_id = ?", sondeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting frames: %w", err)
	}

	return count, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}
