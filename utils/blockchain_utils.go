package utils

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/Luismorlan/vehicle_ledger/model"
)

// How many nonces are tried between two checks of the mining context.
const mineCheckInterval = 4096

var ErrNonceExhausted = errors.New("failed to find any nonce")

// GetSnapshotBytes returns the canonical encoding of a vehicle snapshot. Map keys are
// emitted in sorted order, so equal snapshots always encode to equal bytes.
func GetSnapshotBytes(vehicles map[string]model.VehicleState) ([]byte, error) {
	if vehicles == nil {
		vehicles = map[string]model.VehicleState{}
	}
	return json.Marshal(vehicles)
}

// blockPrefix is everything the hash covers except the nonce.
func blockPrefix(block *model.Block) ([]byte, error) {
	snapshot, err := GetSnapshotBytes(block.Vehicles)
	if err != nil {
		return nil, err
	}
	var raw []byte
	raw = strconv.AppendInt(raw, block.Index, 10)
	raw = append(raw, block.PrevHash...)
	raw = strconv.AppendInt(raw, block.Timestamp, 10)
	raw = append(raw, snapshot...)
	return raw, nil
}

// GetBlockBytes returns the bytes hashed for a block: index, previous hash, timestamp,
// snapshot and nonce, concatenated.
func GetBlockBytes(block *model.Block) ([]byte, error) {
	raw, err := blockPrefix(block)
	if err != nil {
		return nil, err
	}
	return strconv.AppendInt(raw, block.Nonce, 10), nil
}

// ComputeBlockHash is a pure function of the block's index, previous hash, timestamp,
// snapshot and nonce. The stored Hash field is ignored.
func ComputeBlockHash(block *model.Block) (string, error) {
	raw, err := GetBlockBytes(block)
	if err != nil {
		return "", err
	}
	return SHA256Hex(raw), nil
}

// MatchDifficulty recomputes the block hash and reports whether it satisfies difficulty.
func MatchDifficulty(block *model.Block, difficulty int) (bool, string) {
	digest, err := ComputeBlockHash(block)
	if err != nil {
		return false, ""
	}
	return HasLeadingZeros(digest, difficulty), digest
}

// HasLeadingZeros reports whether the hex digest starts with difficulty '0' characters.
func HasLeadingZeros(digest string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(digest) {
		return false
	}
	return strings.Count(digest[:difficulty], "0") == difficulty
}

// Mine a block: starting from nonce 0, search for the first nonce whose hash begins with
// difficulty zero characters. Fills Nonce and Hash and returns the hash. The search is
// unbounded and only stops early when ctx is done.
func Mine(ctx context.Context, block *model.Block, difficulty int) (string, error) {
	prefix, err := blockPrefix(block)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, len(prefix)+20)
	for nonce := int64(0); nonce >= 0; nonce++ {
		if nonce%mineCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
		}
		buf = strconv.AppendInt(append(buf[:0], prefix...), nonce, 10)
		digest := SHA256Hex(buf)
		if HasLeadingZeros(digest, difficulty) {
			block.Nonce = nonce
			block.Hash = digest
			return digest, nil
		}
	}
	return "", ErrNonceExhausted
}

// CreateNewBlock assembles a block over the given snapshot and mines it.
func CreateNewBlock(ctx context.Context, index int64, prevHash string, timestamp int64, vehicles map[string]model.VehicleState, difficulty int) (*model.Block, error) {
	block := &model.Block{
		Index:     index,
		PrevHash:  prevHash,
		Timestamp: timestamp,
		Vehicles:  vehicles,
	}
	if _, err := Mine(ctx, block, difficulty); err != nil {
		return nil, err
	}
	return block, nil
}
