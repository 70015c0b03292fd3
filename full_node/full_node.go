package full_node

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/Luismorlan/vehicle_ledger/utils"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
)

var ErrBlockRejected = errors.New("block rejected by validation")

// RecordSink receives one record per successful location update.
type RecordSink interface {
	Append(ctx context.Context, rec model.VehicleRecord) error
}

// A full node maintains the vehicle ledger and the chain of snapshots over it.
type FullNode struct {
	// Blocks in append order. chain[0] is genesis.
	chain []*model.Block
	// Registered vehicles keyed by owner.
	vehicles map[string]*model.Vehicle
	// Owners eligible to validate, in registration order.
	validators []string
	routes     model.RouteTable
	config     config.AppConfig
	sink       RecordSink
	rng        utils.RandomSource
	now        func() time.Time
	// A single mutex for changing internal state.
	m sync.RWMutex
	// A unique indentifier of this Fullnode, only used in logs and dumps.
	uuid string
}

// Create a brand new full node, which contains a genesis block in the chain. A nil sink
// discards records.
func NewFullNode(c config.AppConfig, sink RecordSink, rng utils.RandomSource) (*FullNode, error) {
	if sink == nil {
		sink = discardSink{}
	}
	f := &FullNode{
		vehicles: make(map[string]*model.Vehicle),
		routes:   model.DefaultRoutes(),
		config:   c,
		sink:     sink,
		rng:      rng,
		now:      time.Now,
		uuid:     uuid.NewV4().String(),
	}
	genesis, err := utils.CreateNewBlock(context.Background(), 1, model.GenesisPrevHash,
		f.now().UnixNano(), map[string]model.VehicleState{}, c.DIFFICULTY)
	if err != nil {
		return nil, fmt.Errorf("mine genesis block: %w", err)
	}
	// Genesis skips validation: nobody holds stake yet.
	f.chain = append(f.chain, genesis)
	log.WithFields(log.Fields{"node": f.uuid, "hash": genesis.Hash}).Info("created genesis block")
	return f, nil
}

func (f *FullNode) ID() string {
	return f.uuid
}

func (f *FullNode) Routes() model.RouteTable {
	return f.routes
}

// RegisterVehicle adds a vehicle on the genesis route. Returns false if owner is taken.
func (f *FullNode) RegisterVehicle(owner, license string, port int) bool {
	f.m.Lock()
	defer f.m.Unlock()

	if _, exist := f.vehicles[owner]; exist {
		return false
	}
	f.vehicles[owner] = utils.NewVehicle(owner, license, port, f.now(), f.config, f.rng)
	f.validators = append(f.validators, owner)
	log.WithFields(log.Fields{"owner": owner, "license": license}).Debug("registered vehicle")
	return true
}

// UpdateLocation applies a location report and hands the resulting record to the sink.
// Returns false only for an unknown owner. A sink failure is logged and leaves the
// vehicle's record chain where it was.
func (f *FullNode) UpdateLocation(owner, stop string) bool {
	f.m.Lock()
	defer f.m.Unlock()

	v, ok := f.vehicles[owner]
	if !ok {
		return false
	}
	now := f.now()
	utils.RecordArrival(v, stop, now, f.routes, f.config, f.rng)
	rec := utils.NewVehicleRecord(v, now, f.routes)

	ctx, cancel := f.sinkContext()
	defer cancel()
	if err := f.sink.Append(ctx, rec); err != nil {
		log.WithError(err).WithField("owner", owner).Warn("failed to persist vehicle record")
		return true
	}
	v.PrevHash = rec.Hash
	return true
}

// SetTimeLimit changes the static wait threshold above which a vehicle counts as in traffic.
func (f *FullNode) SetTimeLimit(seconds int) {
	f.m.Lock()
	defer f.m.Unlock()
	f.config.TIME_LIMIT = seconds
	log.WithField("seconds", seconds).Info("time limit updated")
}

// CurrentLocation returns the stop the vehicle is expected to report next.
func (f *FullNode) CurrentLocation(owner string) (string, bool) {
	f.m.RLock()
	defer f.m.RUnlock()
	v, ok := f.vehicles[owner]
	if !ok {
		return "", false
	}
	return utils.CurrentStop(v, f.routes), true
}

// Vehicle returns a snapshot of one vehicle.
func (f *FullNode) Vehicle(owner string) (model.VehicleState, bool) {
	f.m.RLock()
	defer f.m.RUnlock()
	v, ok := f.vehicles[owner]
	if !ok {
		return model.VehicleState{}, false
	}
	state, err := utils.SnapshotVehicle(v)
	if err != nil {
		return model.VehicleState{}, false
	}
	return state, true
}

// Vehicles returns snapshots of all vehicles sorted by owner.
func (f *FullNode) Vehicles() []model.VehicleState {
	f.m.RLock()
	snapshot, err := utils.SnapshotVehicles(f.vehicles)
	f.m.RUnlock()
	if err != nil {
		log.WithError(err).Error("failed to snapshot vehicles")
		return nil
	}
	res := make([]model.VehicleState, 0, len(snapshot))
	for _, s := range snapshot {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Owner < res[j].Owner })
	return res
}

// Chain returns a deep copy of the chain.
func (f *FullNode) Chain() []*model.Block {
	f.m.RLock()
	defer f.m.RUnlock()
	res := make([]*model.Block, 0, len(f.chain))
	for _, b := range f.chain {
		res = append(res, b.Clone())
	}
	return res
}

func (f *FullNode) Height() int {
	f.m.RLock()
	defer f.m.RUnlock()
	return len(f.chain)
}

// Tail returns a copy of the last block.
func (f *FullNode) Tail() model.Block {
	f.m.RLock()
	defer f.m.RUnlock()
	return *f.chain[len(f.chain)-1]
}

// MineNext creates a block on top of the current tail.
func (f *FullNode) MineNext(ctx context.Context) (*model.Block, error) {
	tail := f.Tail()
	return f.CreateBlock(ctx, tail.Hash)
}

// Create a new block over a snapshot of all vehicles. Mining is a really long process and
// runs without holding the lock; the block is validated and appended afterwards.
func (f *FullNode) CreateBlock(ctx context.Context, previousHash string) (*model.Block, error) {
	f.m.RLock()
	index := int64(len(f.chain) + 1)
	snapshot, err := utils.SnapshotVehicles(f.vehicles)
	f.m.RUnlock()
	if err != nil {
		return nil, err
	}

	block, err := utils.CreateNewBlock(ctx, index, previousHash, f.now().UnixNano(), snapshot, f.config.DIFFICULTY)
	if err != nil {
		return nil, err
	}

	f.m.Lock()
	defer f.m.Unlock()
	if !f.validateBlock(block) {
		log.WithFields(log.Fields{"index": block.Index, "hash": block.Hash}).Warn("block rejected")
		return nil, ErrBlockRejected
	}
	f.chain = append(f.chain, block)
	log.WithFields(log.Fields{"index": block.Index, "hash": block.Hash, "nonce": block.Nonce}).Info("block added")
	return block, nil
}

// ValidateBlock runs the stake gate against the current validator pool.
func (f *FullNode) ValidateBlock(block *model.Block) bool {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.validateBlock(block)
}

// AppendBlock validates a block received from a peer and appends it if it passes.
func (f *FullNode) AppendBlock(block *model.Block) bool {
	f.m.Lock()
	defer f.m.Unlock()
	if !f.validateBlock(block) {
		return false
	}
	f.chain = append(f.chain, block)
	return true
}

// validateBlock must be called with the lock held. A block passes when the validator pool
// holds any stake and the block carries vehicles. A validator is then drawn by stake.
func (f *FullNode) validateBlock(block *model.Block) bool {
	if block == nil || len(block.Vehicles) == 0 || len(f.validators) == 0 {
		return false
	}
	stakes := make([]int, len(f.validators))
	total := 0
	for i, owner := range f.validators {
		stakes[i] = f.vehicles[owner].Stake
		total += stakes[i]
	}
	threshold := float64(total) / float64(len(f.validators))
	if threshold <= 0 {
		return false
	}
	if f.config.STRICT_VALIDATION && !f.checkLinkage(block) {
		return false
	}

	selected := f.vehicles[f.validators[utils.WeightedChoice(f.rng, stakes)]]
	log.WithFields(log.Fields{
		"index":     block.Index,
		"validator": selected.License,
		"threshold": threshold,
	}).Info("block validated")
	return true
}

// checkLinkage verifies the block extends the tail, carries its own hash and meets the
// difficulty.
func (f *FullNode) checkLinkage(block *model.Block) bool {
	tail := f.chain[len(f.chain)-1]
	if block.PrevHash != tail.Hash {
		return false
	}
	matched, digest := utils.MatchDifficulty(block, f.config.DIFFICULTY)
	return matched && digest == block.Hash
}

func (f *FullNode) sinkContext() (context.Context, context.CancelFunc) {
	if f.config.SINK_TIMEOUT <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), f.config.SINK_TIMEOUT)
}

type discardSink struct{}

func (discardSink) Append(context.Context, model.VehicleRecord) error { return nil }
