package full_node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/Luismorlan/vehicle_ledger/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroSource always draws 0, so rollovers land on RouteA.
type zeroSource struct{}

func (zeroSource) Intn(int) int { return 0 }

type memorySink struct {
	m       sync.Mutex
	records []model.VehicleRecord
	err     error
}

func (s *memorySink) Append(_ context.Context, rec model.VehicleRecord) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func testConfig() config.AppConfig {
	c := config.Default()
	c.DIFFICULTY = 1
	return c
}

func newTestNode(t *testing.T, sink RecordSink) *FullNode {
	f, err := NewFullNode(testConfig(), sink, zeroSource{})
	require.NoError(t, err)
	return f
}

// newStakedNode returns a node with one vehicle that has completed the genesis lap.
func newStakedNode(t *testing.T) *FullNode {
	f := newTestNode(t, nil)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))
	require.True(t, f.UpdateLocation("V1", "LocationZ"))
	v, _ := f.Vehicle("V1")
	require.Equal(t, 1, v.Stake)
	return f
}

func TestNewFullNode(t *testing.T) {
	f := newTestNode(t, nil)
	assert.Equal(t, 1, f.Height())
	assert.NotEmpty(t, f.ID())

	genesis := f.Tail()
	assert.Equal(t, int64(1), genesis.Index)
	assert.Equal(t, model.GenesisPrevHash, genesis.PrevHash)
	assert.Empty(t, genesis.Vehicles)
	assert.True(t, utils.HasLeadingZeros(genesis.Hash, 1))
}

func TestRegisterVehicle(t *testing.T) {
	f := newTestNode(t, nil)
	assert.True(t, f.RegisterVehicle("V1", "ABC123", 5001))
	assert.False(t, f.RegisterVehicle("V1", "XYZ999", 5002))
	assert.Len(t, f.Vehicles(), 1)
	assert.Len(t, f.validators, 1)

	v, ok := f.Vehicle("V1")
	require.True(t, ok)
	assert.Equal(t, "ABC123", v.License)
	assert.Equal(t, model.GenesisRoute, v.Route)
	assert.Equal(t, 0, v.Stake)
	assert.Equal(t, config.GenesisHash, v.PrevHash)
}

func TestUpdateLocationUnknownOwner(t *testing.T) {
	sink := &memorySink{}
	f := newTestNode(t, sink)
	assert.False(t, f.UpdateLocation("nobody", "LocationZ"))
	assert.Empty(t, sink.records)
}

func TestUpdateLocationScenario(t *testing.T) {
	f := newTestNode(t, nil)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))

	require.True(t, f.UpdateLocation("V1", "LocationZ"))
	v, _ := f.Vehicle("V1")
	assert.Equal(t, "RouteA", v.Route)
	assert.Equal(t, 0, v.StopIndex)
	assert.Equal(t, 1, v.Stake)

	require.True(t, f.UpdateLocation("V1", "LocationA"))
	v, _ = f.Vehicle("V1")
	assert.Equal(t, []string{"LocationA"}, v.VisitedStops)
	assert.Equal(t, 1, v.StopIndex)

	require.True(t, f.UpdateLocation("V1", "LocationZZZ"))
	v, _ = f.Vehicle("V1")
	assert.Equal(t, []string{"LocationA"}, v.VisitedStops)
	assert.Equal(t, 2, v.StopIndex)

	require.True(t, f.UpdateLocation("V1", "LocationC"))
	v, _ = f.Vehicle("V1")
	assert.Equal(t, []string{"LocationA", "LocationC"}, v.VisitedStops)
	assert.Equal(t, 3, v.StopIndex)

	stop, ok := f.CurrentLocation("V1")
	require.True(t, ok)
	assert.Equal(t, "LocationD", stop)
}

func TestUpdateLocationChainsRecords(t *testing.T) {
	sink := &memorySink{}
	f := newTestNode(t, sink)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))

	require.True(t, f.UpdateLocation("V1", "LocationZ"))
	require.True(t, f.UpdateLocation("V1", "LocationA"))
	require.Len(t, sink.records, 2)

	first, second := sink.records[0], sink.records[1]
	assert.Equal(t, config.GenesisHash, first.PrevHash)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, "V1", second.Owner)
	assert.Equal(t, "RouteA", second.Route)
	assert.Equal(t, 22000, second.Distance)

	v, _ := f.Vehicle("V1")
	assert.Equal(t, second.Hash, v.PrevHash)
}

func TestUpdateLocationSinkFailure(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	f := newTestNode(t, sink)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))

	assert.True(t, f.UpdateLocation("V1", "LocationZ"))
	v, _ := f.Vehicle("V1")
	assert.Equal(t, config.GenesisHash, v.PrevHash)
	assert.Equal(t, 1, v.Count)
}

// stalledSink never completes on its own.
type stalledSink struct{}

func (stalledSink) Append(ctx context.Context, _ model.VehicleRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestUpdateLocationSinkTimeout(t *testing.T) {
	c := testConfig()
	c.SINK_TIMEOUT = 50 * time.Millisecond
	c.PEER_TIMEOUT = time.Hour
	f, err := NewFullNode(c, stalledSink{}, zeroSource{})
	require.NoError(t, err)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))

	start := time.Now()
	assert.True(t, f.UpdateLocation("V1", "LocationZ"))
	assert.Less(t, time.Since(start), 5*time.Second)

	// The lock is free again and the record chain did not move.
	v, ok := f.Vehicle("V1")
	require.True(t, ok)
	assert.Equal(t, config.GenesisHash, v.PrevHash)
}

func TestSetTimeLimit(t *testing.T) {
	f := newTestNode(t, nil)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))

	// Every static wait is at least 20 seconds.
	f.SetTimeLimit(0)
	require.True(t, f.UpdateLocation("V1", "LocationZ"))
	v, _ := f.Vehicle("V1")
	assert.True(t, v.InTraffic)

	f.SetTimeLimit(1000)
	require.True(t, f.UpdateLocation("V1", "LocationA"))
	v, _ = f.Vehicle("V1")
	assert.False(t, v.InTraffic)
}

func TestValidateBlock(t *testing.T) {
	withVehicles := &model.Block{Index: 2, Vehicles: map[string]model.VehicleState{"V1": {Owner: "V1"}}}
	empty := &model.Block{Index: 2, Vehicles: map[string]model.VehicleState{}}

	t.Run("no validators", func(t *testing.T) {
		f := newTestNode(t, nil)
		assert.False(t, f.ValidateBlock(withVehicles))
	})
	t.Run("no stake", func(t *testing.T) {
		f := newTestNode(t, nil)
		require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))
		assert.False(t, f.ValidateBlock(withVehicles))
	})
	t.Run("empty snapshot", func(t *testing.T) {
		f := newStakedNode(t)
		assert.False(t, f.ValidateBlock(empty))
	})
	t.Run("nil block", func(t *testing.T) {
		f := newStakedNode(t)
		assert.False(t, f.ValidateBlock(nil))
	})
	t.Run("staked", func(t *testing.T) {
		f := newStakedNode(t)
		require.True(t, f.RegisterVehicle("V2", "ABC456", 5002))
		// Average stake is 0.5, still above zero.
		assert.True(t, f.ValidateBlock(withVehicles))
	})
	t.Run("weak gate ignores linkage", func(t *testing.T) {
		f := newStakedNode(t)
		bogus := &model.Block{Index: 9, PrevHash: "nope", Hash: "zz", Vehicles: withVehicles.Vehicles}
		assert.True(t, f.ValidateBlock(bogus))
	})
}

func TestStrictValidation(t *testing.T) {
	c := testConfig()
	c.STRICT_VALIDATION = true
	f, err := NewFullNode(c, nil, zeroSource{})
	require.NoError(t, err)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))
	require.True(t, f.UpdateLocation("V1", "LocationZ"))

	snapshot := map[string]model.VehicleState{"V1": {Owner: "V1"}}
	bogus := &model.Block{Index: 2, PrevHash: "nope", Hash: "00", Vehicles: snapshot}
	assert.False(t, f.ValidateBlock(bogus))

	good, err := utils.CreateNewBlock(context.Background(), 2, f.Tail().Hash, 1, snapshot, c.DIFFICULTY)
	require.NoError(t, err)
	assert.True(t, f.ValidateBlock(good))

	good.Hash = "0" + good.Hash[1:len(good.Hash)-1] + "x"
	assert.False(t, f.ValidateBlock(good))

	_, err = f.MineNext(context.Background())
	assert.NoError(t, err)
	_, err = f.CreateBlock(context.Background(), "not the tail")
	assert.ErrorIs(t, err, ErrBlockRejected)
}

func TestCreateBlockRejectedWithoutStake(t *testing.T) {
	f := newTestNode(t, nil)
	require.True(t, f.RegisterVehicle("V1", "ABC123", 5001))
	before := f.Chain()

	_, err := f.MineNext(context.Background())
	assert.ErrorIs(t, err, ErrBlockRejected)
	assert.Equal(t, before, f.Chain())
}

func TestCreateBlock(t *testing.T) {
	f := newStakedNode(t)
	tail := f.Tail()

	block, err := f.CreateBlock(context.Background(), tail.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), block.Index)
	assert.Equal(t, tail.Hash, block.PrevHash)
	assert.Contains(t, block.Vehicles, "V1")
	assert.Equal(t, 2, f.Height())

	// The snapshot is frozen at creation time.
	require.True(t, f.UpdateLocation("V1", "LocationA"))
	assert.Equal(t, 0, f.Tail().Vehicles["V1"].StopIndex)
}

func TestCreateBlockCancelled(t *testing.T) {
	c := testConfig()
	c.DIFFICULTY = 64
	f, err := NewFullNode(testConfig(), nil, zeroSource{})
	require.NoError(t, err)
	f.config = c
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.MineNext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.Height())
}

func TestChainIsMonotonic(t *testing.T) {
	f := newStakedNode(t)
	prev := f.Chain()
	for i := 0; i < 3; i++ {
		_, err := f.MineNext(context.Background())
		require.NoError(t, err)
		chain := f.Chain()
		require.Len(t, chain, len(prev)+1)
		// Earlier blocks never change.
		assert.Equal(t, prev, chain[:len(prev)])
		prev = chain
	}
}

func TestChainReturnsCopy(t *testing.T) {
	f := newStakedNode(t)
	_, err := f.MineNext(context.Background())
	require.NoError(t, err)

	chain := f.Chain()
	chain[1].Hash = "tampered"
	delete(chain[1].Vehicles, "V1")
	assert.NotEqual(t, "tampered", f.Tail().Hash)
	assert.Contains(t, f.Tail().Vehicles, "V1")
}

func TestConcurrentUpdates(t *testing.T) {
	sink := &memorySink{}
	f := newTestNode(t, sink)
	owners := make([]string, 10)
	for i := range owners {
		owners[i] = fmt.Sprintf("0x%d", 100+i)
		require.True(t, f.RegisterVehicle(owners[i], "ABC"+owners[i], 5000+i))
	}

	var wg sync.WaitGroup
	for _, owner := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stop, _ := f.CurrentLocation(owner)
				f.UpdateLocation(owner, stop)
			}
		}(owner)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.MineNext(context.Background())
	}()
	wg.Wait()

	assert.Len(t, sink.records, 500)
	for _, v := range f.Vehicles() {
		assert.Equal(t, 50, v.Count)
		assert.Less(t, v.StopIndex, len(f.Routes()[v.Route].Stops))
	}
}
