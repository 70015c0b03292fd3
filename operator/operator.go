// Package operator drives a remote node through its Admin service, using the same console
// commands as the node itself.
package operator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Luismorlan/vehicle_ledger/commands"
	"github.com/Luismorlan/vehicle_ledger/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var ErrLocalOnly = errors.New("command is only available on the node console")

// Operator sends console commands to a node.
type Operator struct {
	client  *service.AdminClient
	conn    *grpc.ClientConn
	timeout time.Duration
}

// Dial connects to the Admin service at addr.
func Dial(addr string, timeout time.Duration) (*Operator, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial admin %s: %w", addr, err)
	}
	o := New(conn, timeout)
	o.conn = conn
	return o, nil
}

func New(cc grpc.ClientConnInterface, timeout time.Duration) *Operator {
	return &Operator{client: service.NewAdminClient(cc), timeout: timeout}
}

func (o *Operator) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}

// Execute runs one command and returns a line to show the user.
func (o *Operator) Execute(ctx context.Context, c commands.Command) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	switch c.Op {
	case commands.STATUS:
		st, err := o.client.Status(ctx)
		if err != nil {
			return "", err
		}
		return formatFields(st.AsMap()), nil
	case commands.MINE:
		b, err := o.client.CreateBlock(ctx)
		if err != nil {
			return "", err
		}
		return "mined " + formatFields(b.AsMap()), nil
	case commands.SYNC:
		n, err := o.client.Synchronize(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("appended %d blocks from peers", n), nil
	case commands.ADD_PEER:
		if err := o.client.AddPeer(ctx, c.Addr()); err != nil {
			return "", err
		}
		return "added peer " + c.Addr(), nil
	case commands.REMOVE_PEER:
		if err := o.client.RemovePeer(ctx, c.Addr()); err != nil {
			return "", err
		}
		return "removed peer " + c.Addr(), nil
	case commands.LIST_PEER:
		peers, err := o.client.ListPeers(ctx)
		if err != nil {
			return "", err
		}
		return "peers: " + strings.Join(peers, " "), nil
	case commands.REGISTER:
		ok, err := o.client.RegisterVehicle(ctx, c.Args[0], c.Args[1], c.IntArg(2))
		if err != nil {
			return "", err
		}
		if !ok {
			return "vehicle " + c.Args[0] + " is already registered", nil
		}
		return "registered vehicle " + c.Args[0], nil
	case commands.TIME_LIMIT:
		if err := o.client.SetTimeLimit(ctx, c.IntArg(0)); err != nil {
			return "", err
		}
		return fmt.Sprintf("time limit set to %d seconds", c.IntArg(0)), nil
	default:
		return "", ErrLocalOnly
	}
}

func formatFields(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
