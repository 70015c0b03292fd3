package full_node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/Luismorlan/vehicle_ledger/network"
	"github.com/Luismorlan/vehicle_ledger/visualize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FullNodeServer exposes a full node to peers and vehicles over the text protocol and
// keeps the set of peers it synchronizes with.
type FullNodeServer struct {
	// host:port of every known peer.
	peers map[string]struct{}
	// Create a mutex protect peers addition and deletion.
	pm sync.RWMutex

	fullNode *FullNode
	config   config.AppConfig
}

// Create a new full node server around an existing node. Peers are only dialed on sync.
func NewFullNodeServer(c config.AppConfig, node *FullNode, peers []string) *FullNodeServer {
	sev := &FullNodeServer{
		peers:    make(map[string]struct{}),
		fullNode: node,
		config:   c,
	}
	for _, p := range peers {
		sev.AddPeer(p)
	}
	return sev
}

func (sev *FullNodeServer) FullNode() *FullNode {
	return sev.fullNode
}

// AddPeer records a peer address. Adding a known peer is a no-op.
func (sev *FullNodeServer) AddPeer(addr string) {
	sev.pm.Lock()
	defer sev.pm.Unlock()
	sev.peers[addr] = struct{}{}
}

// RemovePeer forgets a peer. Removing an unknown peer is a no-op.
func (sev *FullNodeServer) RemovePeer(addr string) {
	sev.pm.Lock()
	defer sev.pm.Unlock()
	delete(sev.peers, addr)
}

// Return all current peers, sorted.
func (sev *FullNodeServer) Peers() []string {
	sev.pm.RLock()
	defer sev.pm.RUnlock()
	res := make([]string, 0, len(sev.peers))
	for p := range sev.peers {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}

// SynchronizeChain pulls every peer's chain. A peer whose chain is longer than ours has each
// of its blocks validated on its own and the passing ones appended. Failures of one peer
// are logged and do not affect the others. Returns the number of blocks appended.
func (sev *FullNodeServer) SynchronizeChain(ctx context.Context) (int, error) {
	peers := sev.Peers()
	log.WithField("peers", len(peers)).Info("synchronizing blockchain with peers")

	chains := make([][]*model.Block, len(peers))
	g, gctx := errgroup.WithContext(ctx)
	for i, peer := range peers {
		i, peer := i, peer
		g.Go(func() error {
			chain, err := sev.fetchChain(gctx, peer)
			if err != nil {
				log.WithError(err).WithField("peer", peer).Warn("failed to fetch chain")
				return nil
			}
			chains[i] = chain
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	appended := 0
	for i, chain := range chains {
		if len(chain) <= sev.fullNode.Height() {
			continue
		}
		for _, b := range chain {
			if sev.fullNode.AppendBlock(b) {
				appended++
			}
		}
		log.WithFields(log.Fields{"peer": peers[i], "height": sev.fullNode.Height()}).Info("adopted blocks from peer")
	}
	return appended, nil
}

func (sev *FullNodeServer) fetchChain(ctx context.Context, peer string) ([]*model.Block, error) {
	if sev.config.PEER_TIMEOUT > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sev.config.PEER_TIMEOUT)
		defer cancel()
	}
	resp, err := network.Request(ctx, peer, []byte(network.GetBlockchainOp), int64(sev.config.MAX_CHAIN_BYTES))
	if err != nil {
		return nil, err
	}
	chain, err := network.DecodeChain(resp)
	if err != nil {
		return nil, fmt.Errorf("decode chain from %s: %w", peer, err)
	}
	return chain, nil
}

// ListenForPeers accepts connections until lis is closed, serving each on its own goroutine.
// A closed listener is the shutdown signal and yields nil.
func (sev *FullNodeServer) ListenForPeers(lis net.Listener) error {
	log.WithField("addr", lis.Addr().String()).Info("listening for peers")
	for {
		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go sev.HandlePeerConnection(conn)
	}
}

// HandlePeerConnection serves exactly one request and closes the connection.
func (sev *FullNodeServer) HandlePeerConnection(conn net.Conn) {
	defer network.CloseOrLog(conn)

	raw, err := network.ReadMessage(conn, sev.config.PEER_TIMEOUT)
	if err != nil {
		log.WithError(err).WithField("remote", conn.RemoteAddr().String()).Debug("failed to read message")
		return
	}
	msg, err := network.ParseMessage(raw)
	if err != nil {
		log.WithError(err).WithField("remote", conn.RemoteAddr().String()).Warn("dropping message")
		return
	}

	var reply []byte
	switch m := msg.(type) {
	case network.UpdateLocation:
		if sev.fullNode.UpdateLocation(m.Owner, m.Stop) {
			reply = []byte(network.LocationUpdated)
		} else {
			reply = []byte(network.LocationUpdateFailed)
		}
	case network.GetBlockchain:
		reply, err = network.EncodeChain(sev.fullNode.Chain())
		if err != nil {
			log.WithError(err).Error("failed to encode chain")
			return
		}
	}
	if _, err := conn.Write(reply); err != nil {
		log.WithError(err).WithField("remote", conn.RemoteAddr().String()).Debug("failed to write reply")
	}
}

// Mine one block on top of the current tail.
func (sev *FullNodeServer) Mine(ctx context.Context) (*model.Block, error) {
	return sev.fullNode.MineNext(ctx)
}

// Show renders the last d blocks of the chain to a graph file and returns its path.
func (sev *FullNodeServer) Show(d int) (string, error) {
	return visualize.Render(sev.fullNode.Chain(), d, sev.fullNode.ID(), sev.config.DATA_DIR)
}
