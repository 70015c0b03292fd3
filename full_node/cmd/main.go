package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/Luismorlan/vehicle_ledger/client"
	"github.com/Luismorlan/vehicle_ledger/commands"
	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/flags"
	"github.com/Luismorlan/vehicle_ledger/full_node"
	"github.com/Luismorlan/vehicle_ledger/layout"
	"github.com/Luismorlan/vehicle_ledger/network"
	"github.com/Luismorlan/vehicle_ledger/service"
	"github.com/Luismorlan/vehicle_ledger/store"
	"github.com/Luismorlan/vehicle_ledger/utils"
	"github.com/jroimartin/gocui"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	cli "gopkg.in/urfave/cli.v1"
)

const vehicleCountFile = "vehicle_count.txt"

func main() {
	app := flags.NewApp()
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(ctx *cli.Context) (config.AppConfig, error) {
	cfg, err := config.Load(ctx.String("config"))
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", ctx.String("config")).Warn("config file not found, using defaults")
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return cfg, err
	}
	flags.ApplyOverrides(ctx, &cfg)
	return cfg, cfg.Validate()
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LOG_LEVEL)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	seed := ctx.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := utils.NewRandomSource(seed)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := store.Open(sigCtx, cfg)
	if err != nil {
		return err
	}
	defer network.CloseOrLog(sink)

	node, err := full_node.NewFullNode(cfg, sink, rng)
	if err != nil {
		return err
	}
	server := full_node.NewFullNodeServer(cfg, node, cfg.PEERS)
	log.WithFields(log.Fields{"id": node.ID(), "seed": seed}).Info("full node created")

	lis, err := net.Listen("tcp", cfg.LISTEN_ADDR)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(sigCtx)
	context.AfterFunc(gctx, func() { network.CloseOrLog(lis) })
	g.Go(func() error { return server.ListenForPeers(lis) })

	if cfg.ADMIN_ADDR != "" {
		startReporter := func(owner, license string) {
			r := newReporter(owner, license, node, cfg)
			g.Go(func() error { return r.Run(gctx) })
		}
		if err := serveAdmin(gctx, g, cfg.ADMIN_ADDR, server, startReporter); err != nil {
			return err
		}
	}
	if cfg.HTTP_ADDR != "" {
		serveHTTP(gctx, g, cfg.HTTP_ADDR, server)
	}

	reporters, err := bootstrapVehicles(node, cfg, rng)
	if err != nil {
		return err
	}
	for _, r := range reporters {
		r := r
		g.Go(func() error { return r.Run(gctx) })
	}

	// A command channel that non-blockingly takes external or internal command
	// and handle it correspondingly.
	cmd := make(chan commands.Command)
	if ctx.Bool("gui") {
		gui, err := layout.CreateGui(cmd, ctx.String("manual"))
		if err != nil {
			return err
		}
		log.SetOutput(layout.NewLogWriter(gui))
		go func() {
			if err := gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
				fmt.Fprintln(os.Stderr, err)
			}
			gui.Close()
			stop()
		}()
	} else {
		go ParseCommand(os.Stdin, cmd)
	}

	c := &console{server: server, cfg: cfg, g: g, ctx: gctx}
	g.Go(func() error { return c.HandleCommand(cmd) })

	return g.Wait()
}

func serveAdmin(ctx context.Context, g *errgroup.Group, addr string, server *full_node.FullNodeServer, onRegister func(owner, license string)) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for admin: %w", err)
	}
	grpcServer := grpc.NewServer()
	service.RegisterAdminServer(grpcServer, full_node.NewAdminServer(server, full_node.WithRegisterHook(onRegister)))
	context.AfterFunc(ctx, grpcServer.GracefulStop)
	g.Go(func() error {
		log.WithField("addr", addr).Info("serving admin service")
		return grpcServer.Serve(lis)
	})
	return nil
}

func serveHTTP(ctx context.Context, g *errgroup.Group, addr string, server *full_node.FullNodeServer) {
	srv := &http.Server{Addr: addr, Handler: full_node.NewHTTPHandler(server)}
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	})
	g.Go(func() error {
		log.WithField("addr", addr).Info("serving http api")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

// bootstrapVehicles registers a random fleet and returns a reporter per registered vehicle.
// Owners are drawn from a small space, so duplicates are skipped. The number of vehicles
// attempted is written to the data directory.
func bootstrapVehicles(node *full_node.FullNode, cfg config.AppConfig, rng utils.RandomSource) ([]*client.Reporter, error) {
	count := utils.RandRange(rng, cfg.VEHICLE_COUNT_MIN, cfg.VEHICLE_COUNT_MAX)
	if err := os.MkdirAll(cfg.DATA_DIR, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(cfg.DATA_DIR, vehicleCountFile), []byte(strconv.Itoa(count)), 0o644); err != nil {
		return nil, err
	}

	var reporters []*client.Reporter
	for i := 0; i < count; i++ {
		owner := fmt.Sprintf("0x%d", utils.RandRange(rng, 100, 999))
		license := fmt.Sprintf("ABC%d", utils.RandRange(rng, 100, 999))
		port := utils.RandRange(rng, 5000, 6000)
		if !node.RegisterVehicle(owner, license, port) {
			continue
		}
		reporters = append(reporters, newReporter(owner, license, node, cfg))
	}
	log.WithFields(log.Fields{"attempted": count, "registered": len(reporters)}).Info("vehicles bootstrapped")
	return reporters, nil
}

func newReporter(owner, license string, node *full_node.FullNode, cfg config.AppConfig) *client.Reporter {
	return &client.Reporter{
		Owner:    owner,
		License:  license,
		Addr:     cfg.LISTEN_ADDR,
		Interval: cfg.REPORT_INTERVAL,
		Timeout:  cfg.PEER_TIMEOUT,
		Locator:  node,
	}
}
