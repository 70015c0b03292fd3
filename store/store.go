// Package store persists the per-vehicle records a node emits on every location update.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/model"
)

var ErrUnknownSink = errors.New("unknown record sink")

// Store is a record sink.
type Store interface {
	Append(ctx context.Context, rec model.VehicleRecord) error
	Close() error
}

// Columns is the field order of a persisted record.
var Columns = []string{
	"sequence", "owner", "license", "route", "stop", "distance", "timestamp",
	"static_wait", "total_duration", "velocity", "previous_hash", "hash", "in_traffic",
}

// Row renders a record in Columns order.
func Row(rec model.VehicleRecord) []string {
	return []string{
		strconv.Itoa(rec.Sequence),
		rec.Owner,
		rec.License,
		rec.Route,
		rec.Stop,
		strconv.Itoa(rec.Distance),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(rec.StaticWait),
		strconv.Itoa(rec.TotalDuration),
		strconv.FormatFloat(rec.Velocity, 'f', -1, 64),
		rec.PrevHash,
		rec.Hash,
		strconv.FormatBool(rec.InTraffic),
	}
}

// Open builds the sink named by c.SINK. Several names separated by commas fan out to all
// of them. "none" or an empty name yields a sink that drops everything.
func Open(ctx context.Context, c config.AppConfig) (Store, error) {
	var stores Multi
	for _, name := range strings.Split(c.SINK, ",") {
		s, err := open(ctx, strings.TrimSpace(name), c)
		if err != nil {
			stores.Close()
			return nil, err
		}
		if s != nil {
			stores = append(stores, s)
		}
	}
	switch len(stores) {
	case 0:
		return Discard{}, nil
	case 1:
		return stores[0], nil
	default:
		return stores, nil
	}
}

func open(ctx context.Context, name string, c config.AppConfig) (Store, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "csv":
		return NewCSVStore(c.DATA_DIR)
	case "nats":
		return NewNATSStore(c.NATS_URL, c.NATS_SUBJECT)
	case "redis":
		return NewRedisStore(ctx, c.REDIS_URL)
	case "postgres":
		return NewPostgresStore(ctx, c.DATABASE_URL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
	}
}

// Multi appends every record to each of its stores. An error from one store does not stop
// the others.
type Multi []Store

func (m Multi) Append(ctx context.Context, rec model.VehicleRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Append(context.Context, model.VehicleRecord) error { return nil }

func (Discard) Close() error { return nil }
