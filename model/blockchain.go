package model

// GenesisPrevHash is the previous hash carried by the first block of every chain.
const GenesisPrevHash = "1"

type Block struct {
	// Position in the chain, starting at 1.
	Index int64 `json:"index"`
	// Hash of the previous block in the hex format.
	PrevHash string `json:"previous_hash"`
	// Creation time in Unix nanoseconds.
	Timestamp int64 `json:"timestamp"`
	// Vehicles at the time the block was created, keyed by owner.
	Vehicles map[string]VehicleState `json:"vehicles"`
	// Nonce is the miner's challenge for computing the block.
	Nonce int64 `json:"nonce"`
	// Hash of this entire block in the hex string format. Set once mining completes.
	Hash string `json:"hash"`
}

// Clone returns a copy of the block that shares no memory with b.
func (b *Block) Clone() *Block {
	c := *b
	if b.Vehicles != nil {
		c.Vehicles = make(map[string]VehicleState, len(b.Vehicles))
		for owner, v := range b.Vehicles {
			if v.VisitedStops != nil {
				v.VisitedStops = append(make([]string, 0, len(v.VisitedStops)), v.VisitedStops...)
			}
			c.Vehicles[owner] = v
		}
	}
	return &c
}
