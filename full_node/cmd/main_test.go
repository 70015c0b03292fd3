package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Luismorlan/vehicle_ledger/commands"
	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/full_node"
	"github.com/Luismorlan/vehicle_ledger/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testConfig(t *testing.T) config.AppConfig {
	c := config.Default()
	c.DIFFICULTY = 1
	c.DATA_DIR = t.TempDir()
	c.SINK = "none"
	c.VEHICLE_COUNT_MIN = 5
	c.VEHICLE_COUNT_MAX = 5
	// Nothing listens here; reporters fail fast.
	c.LISTEN_ADDR = "127.0.0.1:1"
	c.REPORT_INTERVAL = 10 * time.Millisecond
	c.PEER_TIMEOUT = 100 * time.Millisecond
	return c
}

func newTestServer(t *testing.T, c config.AppConfig) *full_node.FullNodeServer {
	node, err := full_node.NewFullNode(c, nil, utils.NewRandomSource(1))
	require.NoError(t, err)
	return full_node.NewFullNodeServer(c, node, nil)
}

func TestBootstrapVehicles(t *testing.T) {
	c := testConfig(t)
	server := newTestServer(t, c)

	reporters, err := bootstrapVehicles(server.FullNode(), c, utils.NewRandomSource(7))
	require.NoError(t, err)
	assert.NotEmpty(t, reporters)
	assert.LessOrEqual(t, len(reporters), 5)
	assert.Len(t, server.FullNode().Vehicles(), len(reporters))
	for _, r := range reporters {
		assert.True(t, strings.HasPrefix(r.Owner, "0x"))
		assert.True(t, strings.HasPrefix(r.License, "ABC"))
		assert.Equal(t, c.LISTEN_ADDR, r.Addr)
	}

	count, err := os.ReadFile(filepath.Join(c.DATA_DIR, vehicleCountFile))
	require.NoError(t, err)
	assert.Equal(t, "5", string(count))
}

func TestParseCommand(t *testing.T) {
	cmd := make(chan commands.Command, 4)
	ParseCommand(strings.NewReader("add_peer localhost 5001\nfly away\n\nstatus\n"), cmd)
	require.Len(t, cmd, 2)
	assert.Equal(t, commands.Operation(commands.ADD_PEER), (<-cmd).Op)
	assert.Equal(t, commands.Operation(commands.STATUS), (<-cmd).Op)
}

func newTestConsole(t *testing.T) (*console, context.CancelFunc, *errgroup.Group) {
	c := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	return &console{server: newTestServer(t, c), cfg: c, g: g, ctx: gctx}, cancel, g
}

func runLine(t *testing.T, c *console, line string) {
	op, err := commands.CreateCommand(line)
	require.NoError(t, err)
	c.execute(op)
}

func TestConsolePeersAndTimeLimit(t *testing.T) {
	c, cancel, g := newTestConsole(t)
	defer cancel()

	runLine(t, c, "add_peer localhost 5001")
	runLine(t, c, "add_peer ::1 5002")
	runLine(t, c, "remove_peer localhost 5001")
	assert.Equal(t, []string{"[::1]:5002"}, c.server.Peers())

	runLine(t, c, "register 0x123 ABC123 5001")
	_, ok := c.server.FullNode().Vehicle("0x123")
	assert.True(t, ok)

	runLine(t, c, "time_limit 5")
	runLine(t, c, "status")

	cancel()
	assert.NoError(t, g.Wait())
}

func TestConsoleMining(t *testing.T) {
	c, cancel, _ := newTestConsole(t)
	defer cancel()
	node := c.server.FullNode()

	// Nobody holds stake, the block is rejected.
	runLine(t, c, "mine")
	assert.Equal(t, 1, node.Height())

	require.True(t, node.RegisterVehicle("0x123", "ABC123", 5001))
	require.True(t, node.UpdateLocation("0x123", "LocationZ"))
	runLine(t, c, "mine")
	assert.Equal(t, 2, node.Height())

	runLine(t, c, "start")
	assert.NotNil(t, c.stopMining)
	assert.Eventually(t, func() bool { return node.Height() > 2 }, 5*time.Second, 10*time.Millisecond)
	runLine(t, c, "stop")
	assert.Nil(t, c.stopMining)
}

func TestHandleCommandStopsWithContext(t *testing.T) {
	c, cancel, _ := newTestConsole(t)
	cmd := make(chan commands.Command)
	done := make(chan error, 1)
	go func() { done <- c.HandleCommand(cmd) }()

	cmd <- commands.Command{Op: commands.ADD_PEER, Args: []string{"localhost", "5001"}}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}
	assert.Equal(t, []string{"localhost:5001"}, c.server.Peers())
}
