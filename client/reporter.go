package client

import (
	"context"
	"errors"
	"syscall"
	"time"

	"github.com/Luismorlan/vehicle_ledger/network"
	log "github.com/sirupsen/logrus"
)

// Locator tells a reporter where its vehicle is expected next.
type Locator interface {
	CurrentLocation(owner string) (string, bool)
}

// Reporter periodically sends UPDATE_LOCATION for one vehicle to a node.
type Reporter struct {
	Owner    string
	License  string
	Addr     string
	Interval time.Duration
	Timeout  time.Duration
	Locator  Locator
}

// Report sends a single update and returns the node's reply.
func (r *Reporter) Report(ctx context.Context) (string, error) {
	stop, ok := r.Locator.CurrentLocation(r.Owner)
	if !ok {
		return "", errors.New("vehicle is not registered: " + r.Owner)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	msg := network.UpdateLocation{Owner: r.Owner, Stop: stop}
	resp, err := network.Request(ctx, r.Addr, []byte(msg.String()), network.MaxMessageBytes)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"license": r.License, "stop": stop}).Debug("sent location update")
	return string(resp), nil
}

// Run reports every Interval until ctx is done. Failed reports are logged and retried on
// the next tick.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		if _, err := r.Report(ctx); err != nil {
			entry := log.WithError(err).WithField("license", r.License)
			if errors.Is(err, syscall.ECONNREFUSED) {
				entry.Warn("connection refused, server may not be running")
			} else if ctx.Err() == nil {
				entry.Warn("error sending location update")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
