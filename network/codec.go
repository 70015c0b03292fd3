package network

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Luismorlan/vehicle_ledger/model"
)

var ErrMalformedChain = errors.New("malformed chain")

// Fields per block record: index, previous hash, timestamp, snapshot, nonce, hash.
const recordFields = 6

// EncodeBlock renders one block as a comma separated record. The snapshot is base64url JSON
// so it never contains a separator.
func EncodeBlock(b *model.Block) (string, error) {
	vehicles := b.Vehicles
	if vehicles == nil {
		vehicles = map[string]model.VehicleState{}
	}
	snapshot, err := json.Marshal(vehicles)
	if err != nil {
		return "", fmt.Errorf("encode snapshot of block %d: %w", b.Index, err)
	}
	return strings.Join([]string{
		strconv.FormatInt(b.Index, 10),
		b.PrevHash,
		strconv.FormatInt(b.Timestamp, 10),
		base64.RawURLEncoding.EncodeToString(snapshot),
		strconv.FormatInt(b.Nonce, 10),
		b.Hash,
	}, ","), nil
}

// EncodeChain renders a chain reply: the BLOCKCHAIN: prefix followed by one record per line.
func EncodeChain(chain []*model.Block) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(BlockchainPrefix)
	for i, b := range chain {
		rec, err := EncodeBlock(b)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(rec)
	}
	return buf.Bytes(), nil
}

// DecodeBlock parses a record produced by EncodeBlock. Anything unexpected fails the whole
// record.
func DecodeBlock(rec string) (*model.Block, error) {
	fields := strings.Split(rec, ",")
	if len(fields) != recordFields {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedChain, recordFields, len(fields))
	}
	index, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || index < 1 {
		return nil, fmt.Errorf("%w: bad index %q", ErrMalformedChain, fields[0])
	}
	timestamp, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", ErrMalformedChain, fields[2])
	}
	nonce, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil || nonce < 0 {
		return nil, fmt.Errorf("%w: bad nonce %q", ErrMalformedChain, fields[4])
	}
	raw, err := base64.RawURLEncoding.DecodeString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot of block %d: %v", ErrMalformedChain, index, err)
	}
	vehicles := map[string]model.VehicleState{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&vehicles); err != nil {
		return nil, fmt.Errorf("%w: snapshot of block %d: %v", ErrMalformedChain, index, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data in snapshot of block %d", ErrMalformedChain, index)
	}
	if vehicles == nil {
		vehicles = map[string]model.VehicleState{}
	}
	return &model.Block{
		Index:     index,
		PrevHash:  fields[1],
		Timestamp: timestamp,
		Vehicles:  vehicles,
		Nonce:     nonce,
		Hash:      fields[5],
	}, nil
}

// DecodeChain parses a chain reply. The prefix is required; an empty body is an empty chain.
func DecodeChain(data []byte) ([]*model.Block, error) {
	s := string(data)
	if !strings.HasPrefix(s, BlockchainPrefix) {
		return nil, fmt.Errorf("%w: missing %s prefix", ErrMalformedChain, BlockchainPrefix)
	}
	body := strings.TrimRight(strings.TrimPrefix(s, BlockchainPrefix), "\n")
	if body == "" {
		return nil, nil
	}
	lines := strings.Split(body, "\n")
	chain := make([]*model.Block, 0, len(lines))
	for i, line := range lines {
		b, err := DecodeBlock(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		chain = append(chain, b)
	}
	return chain, nil
}
