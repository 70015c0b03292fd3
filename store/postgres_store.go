package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Luismorlan/vehicle_ledger/model"
	_ "github.com/lib/pq"
)

const createVehicleRecords = `
CREATE TABLE IF NOT EXISTS vehicle_records (
	id             BIGSERIAL PRIMARY KEY,
	sequence       INTEGER NOT NULL,
	owner          TEXT NOT NULL,
	license        TEXT NOT NULL,
	route          TEXT NOT NULL,
	stop           TEXT NOT NULL,
	distance       INTEGER NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	static_wait    INTEGER NOT NULL,
	total_duration INTEGER NOT NULL,
	velocity       DOUBLE PRECISION NOT NULL,
	previous_hash  CHAR(64) NOT NULL,
	hash           CHAR(64) NOT NULL,
	in_traffic     BOOLEAN NOT NULL
)`

const insertVehicleRecord = `
INSERT INTO vehicle_records
	(sequence, owner, license, route, stop, distance, timestamp, static_wait, total_duration, velocity, previous_hash, hash, in_traffic)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// PostgresStore inserts records into the vehicle_records table, creating it if needed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newPostgresStore(ctx, db)
}

// newPostgresStore takes ownership of db and makes sure the table exists.
func newPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, createVehicleRecords); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vehicle_records: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec model.VehicleRecord) error {
	_, err := s.db.ExecContext(ctx, insertVehicleRecord,
		rec.Sequence, rec.Owner, rec.License, rec.Route, rec.Stop, rec.Distance, rec.Timestamp,
		rec.StaticWait, rec.TotalDuration, rec.Velocity, rec.PrevHash, rec.Hash, rec.InTraffic)
	if err != nil {
		return fmt.Errorf("insert record of %s: %w", rec.Owner, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
