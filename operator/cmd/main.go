package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Luismorlan/vehicle_ledger/commands"
	"github.com/Luismorlan/vehicle_ledger/layout"
	"github.com/Luismorlan/vehicle_ledger/operator"
	"github.com/jroimartin/gocui"
	log "github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "vehicle-operator"
	app.Usage = "Operate a vehicle ledger node through its admin service"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "admin",
			Usage: "host:port of the node's admin service",
			Value: "localhost:7000",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "Deadline of a single admin call, mining included",
		},
		cli.BoolFlag{
			Name:  "gui",
			Usage: "Run the terminal console instead of reading commands from stdin",
		},
		cli.StringFlag{
			Name:  "manual",
			Usage: "Path to the console manual shown by the GUI",
			Value: "operator/cmd/usage.txt",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	op, err := operator.Dial(ctx.String("admin"), ctx.Duration("timeout"))
	if err != nil {
		return err
	}
	defer op.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := make(chan commands.Command)
	if ctx.Bool("gui") {
		g, err := layout.CreateGui(cmd, ctx.String("manual"))
		if err != nil {
			return err
		}
		log.SetOutput(layout.NewLogWriter(g))
		go func() {
			if err := g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
				fmt.Fprintln(os.Stderr, err)
			}
			g.Close()
			stop()
		}()
	} else {
		go func() {
			ParseCommand(cmd)
			stop()
		}()
	}
	log.WithField("admin", ctx.String("admin")).Info("operator connected")

	HandleCommand(sigCtx, cmd, op)
	return nil
}

// Parse command from stdio until it is closed.
func ParseCommand(cmd chan commands.Command) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if text := strings.TrimSpace(scanner.Text()); text != "" {
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

func HandleCommand(ctx context.Context, cmd chan commands.Command, op *operator.Operator) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-cmd:
			out, err := op.Execute(ctx, c)
			if err != nil {
				log.WithError(err).Warn("command failed")
				continue
			}
			log.Info(out)
		}
	}
}
