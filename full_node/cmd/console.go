package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Luismorlan/vehicle_ledger/commands"
	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/full_node"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Parse command from the reader, one per line, until it is exhausted.
func ParseCommand(r io.Reader, cmd chan<- commands.Command) {
	scanner := bufio.NewScanner(r)
	fmt.Print("> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text != "" {
			c, err := commands.CreateCommand(text)
			if err != nil {
				log.Println(err)
			} else {
				cmd <- c
			}
		}
		fmt.Print("> ")
	}
}

// console executes operator commands against the local node.
type console struct {
	server *full_node.FullNodeServer
	cfg    config.AppConfig
	// Reporters of vehicles registered from the console join the node's group.
	g   *errgroup.Group
	ctx context.Context

	// Cancels the running mining loop, nil when idle.
	stopMining context.CancelFunc
}

// HandleCommand runs until the node shuts down.
func (c *console) HandleCommand(cmd <-chan commands.Command) error {
	for {
		select {
		case <-c.ctx.Done():
			if c.stopMining != nil {
				c.stopMining()
			}
			return nil
		case op := <-cmd:
			c.execute(op)
		}
	}
}

func (c *console) execute(op commands.Command) {
	node := c.server.FullNode()
	switch op.Op {
	case commands.START:
		if c.stopMining != nil {
			log.Warn("mining has already been started")
			return
		}
		ctx, cancel := context.WithCancel(c.ctx)
		c.stopMining = cancel
		go mineLoop(ctx, c.server, c.cfg.REPORT_INTERVAL)
	case commands.STOP:
		if c.stopMining == nil {
			log.Warn("no running mining task to stop")
			return
		}
		c.stopMining()
		c.stopMining = nil
	case commands.MINE:
		if _, err := c.server.Mine(c.ctx); err != nil {
			log.WithError(err).Warn("failed to mine block")
		}
	case commands.SYNC:
		n, err := c.server.SynchronizeChain(c.ctx)
		if err != nil {
			log.WithError(err).Warn("failed to synchronize")
			return
		}
		log.WithField("appended", n).Info("synchronized with peers")
	case commands.ADD_PEER:
		c.server.AddPeer(op.Addr())
		log.WithField("peer", op.Addr()).Info("peer added")
	case commands.REMOVE_PEER:
		c.server.RemovePeer(op.Addr())
		log.WithField("peer", op.Addr()).Info("peer removed")
	case commands.LIST_PEER:
		log.Info("peers: " + strings.Join(c.server.Peers(), " "))
	case commands.SHOW:
		path, err := c.server.Show(op.IntArg(0))
		if err != nil {
			log.WithError(err).Warn("failed to render chain")
			return
		}
		log.WithField("path", path).Info("chain rendered")
	case commands.REGISTER:
		owner, license, port := op.Args[0], op.Args[1], op.IntArg(2)
		if !node.RegisterVehicle(owner, license, port) {
			log.WithField("owner", owner).Warn("vehicle already registered")
			return
		}
		r := newReporter(owner, license, node, c.cfg)
		c.g.Go(func() error { return r.Run(c.ctx) })
		log.WithField("owner", owner).Info("vehicle registered")
	case commands.TIME_LIMIT:
		node.SetTimeLimit(op.IntArg(0))
		log.WithField("seconds", op.IntArg(0)).Info("time limit updated")
	case commands.STATUS:
		tail := node.Tail()
		log.WithFields(log.Fields{
			"id":       node.ID(),
			"height":   node.Height(),
			"tail":     tail.Hash,
			"vehicles": len(node.Vehicles()),
			"peers":    len(c.server.Peers()),
			"mining":   c.stopMining != nil,
		}).Info("status")
	default:
		log.Warn("unrecognized command: ", op)
	}
}

// mineLoop mines blocks back to back until ctx is cancelled. While no vehicle holds stake
// every block is rejected, so the loop backs off for wait before trying again.
func mineLoop(ctx context.Context, server *full_node.FullNodeServer, wait time.Duration) {
	log.Info("mining started")
	defer log.Info("mining stopped")
	for ctx.Err() == nil {
		_, err := server.Mine(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, full_node.ErrBlockRejected):
		case ctx.Err() != nil:
			return
		default:
			log.WithError(err).Warn("failed to mine block")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
