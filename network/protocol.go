package network

import (
	"errors"
	"fmt"
	"strings"
)

const (
	UpdateLocationOp = "UPDATE_LOCATION"
	GetBlockchainOp  = "GET_BLOCKCHAIN"

	// Prefix of a chain transfer reply.
	BlockchainPrefix = "BLOCKCHAIN:"

	LocationUpdated      = "Location updated"
	LocationUpdateFailed = "Location update failed"
)

var ErrMalformedMessage = errors.New("malformed message")

// Message is one parsed inbound request.
type Message interface {
	Op() string
}

// UpdateLocation reports that a vehicle reached a stop.
type UpdateLocation struct {
	Owner string
	Stop  string
}

func (UpdateLocation) Op() string { return UpdateLocationOp }

func (m UpdateLocation) String() string {
	return strings.Join([]string{UpdateLocationOp, m.Owner, m.Stop}, ",")
}

// GetBlockchain asks the remote node for its whole chain.
type GetBlockchain struct{}

func (GetBlockchain) Op() string { return GetBlockchainOp }

func (GetBlockchain) String() string { return GetBlockchainOp }

// ParseMessage decodes a comma separated request line.
func ParseMessage(s string) (Message, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	switch fields[0] {
	case UpdateLocationOp:
		if len(fields) != 3 || fields[1] == "" || fields[2] == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedMessage, s)
		}
		return UpdateLocation{Owner: fields[1], Stop: fields[2]}, nil
	case GetBlockchainOp:
		if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedMessage, s)
		}
		return GetBlockchain{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrMalformedMessage, fields[0])
	}
}
