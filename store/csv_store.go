package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Luismorlan/vehicle_ledger/model"
)

// CSVStore appends records to one file per vehicle, vehicle_<owner>.csv, under dir.
type CSVStore struct {
	dir string
	m   sync.Mutex
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &CSVStore{dir: dir}, nil
}

// Path returns the file holding owner's records.
func (s *CSVStore) Path(owner string) string {
	return filepath.Join(s.dir, "vehicle_"+filepath.Base(owner)+".csv")
}

// Append writes one row, preceded by the header if the file is new or empty.
func (s *CSVStore) Append(_ context.Context, rec model.VehicleRecord) error {
	s.m.Lock()
	defer s.m.Unlock()

	path := s.Path(rec.Owner)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Columns); err != nil {
			return err
		}
	}
	if err := w.Write(Row(rec)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *CSVStore) Close() error {
	return nil
}
