package store

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(seq int) model.VehicleRecord {
	return model.VehicleRecord{
		Sequence:      seq,
		Owner:         "0x123",
		License:       "ABC123",
		Route:         "RouteA",
		Stop:          "LocationB",
		Distance:      22000,
		Timestamp:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		StaticWait:    42,
		TotalDuration: 2500,
		Velocity:      8.8,
		PrevHash:      config.GenesisHash,
		Hash:          "ab",
		InTraffic:     false,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRow(t *testing.T) {
	assert.Equal(t, []string{
		"1", "0x123", "ABC123", "RouteA", "LocationB", "22000", "2024-01-01T12:00:00Z",
		"42", "2500", "8.8", config.GenesisHash, "ab", "false",
	}, Row(testRecord(1)))
	assert.Len(t, Columns, len(Row(testRecord(1))))
}

func TestCSVStoreWritesHeaderOnce(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testRecord(1)))
	require.NoError(t, s.Append(ctx, testRecord(2)))

	rows := readCSV(t, s.Path("0x123"))
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2", rows[2][0])
}

func TestCSVStoreExistingEmptyFile(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path("0x123"), nil, 0o644))

	require.NoError(t, s.Append(context.Background(), testRecord(1)))
	rows := readCSV(t, s.Path("0x123"))
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
}

func TestCSVStoreFilePerVehicle(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	other := testRecord(1)
	other.Owner = "0x456"

	require.NoError(t, s.Append(context.Background(), testRecord(1)))
	require.NoError(t, s.Append(context.Background(), other))
	assert.FileExists(t, dir+"/vehicle_0x123.csv")
	assert.FileExists(t, dir+"/vehicle_0x456.csv")
}

type failingStore struct {
	appended int
	err      error
}

func (f *failingStore) Append(context.Context, model.VehicleRecord) error {
	f.appended++
	return f.err
}

func (f *failingStore) Close() error { return f.err }

func TestMulti(t *testing.T) {
	bad := &failingStore{err: errors.New("boom")}
	good := &failingStore{}
	m := Multi{bad, good}

	err := m.Append(context.Background(), testRecord(1))
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, bad.appended)
	assert.Equal(t, 1, good.appended)
	assert.Error(t, m.Close())
}

func TestOpen(t *testing.T) {
	c := config.Default()
	ctx := context.Background()

	c.SINK = "none"
	s, err := Open(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, Discard{}, s)

	c.SINK = "csv"
	c.DATA_DIR = t.TempDir()
	s, err = Open(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	c.SINK = "csv, none, csv"
	s, err = Open(ctx, c)
	require.NoError(t, err)
	assert.Len(t, s, 2)

	c.SINK = "kafka"
	_, err = Open(ctx, c)
	assert.ErrorIs(t, err, ErrUnknownSink)
}
