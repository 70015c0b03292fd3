package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// NATSStore publishes each record as JSON on <subject>.<owner>.
type NATSStore struct {
	conn    *nats.Conn
	subject string
}

func NewNATSStore(url, subject string) (*NATSStore, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name("vehicle-ledger"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSStore{conn: conn, subject: subject}, nil
}

// Subject returns the subject records of owner are published on.
func (s *NATSStore) Subject(owner string) string {
	return s.subject + "." + owner
}

func (s *NATSStore) Append(ctx context.Context, rec model.VehicleRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.Subject(rec.Owner), data); err != nil {
		return fmt.Errorf("publish record of %s: %w", rec.Owner, err)
	}
	return nil
}

func (s *NATSStore) Close() error {
	return s.conn.Drain()
}
