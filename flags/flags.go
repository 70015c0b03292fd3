package flags

import (
	"os"
	"strings"

	"github.com/Luismorlan/vehicle_ledger/config"
	cli "gopkg.in/urfave/cli.v1"
)

func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vehicle-ledger"
	app.Usage = "Vehicle ledger full node"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Flags = append(append(append(CommonFlags(), NodeFlags()...), NetworkFlags()...), SinkFlags()...)
	return app
}

// CommonFlags covers config file and logging.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to the YAML node config",
			Value: "full_node/cmd/config.yaml",
		},
		cli.StringFlag{
			Name:  "log.level",
			Usage: "Log level (debug|info|warn|error)",
		},
		cli.BoolFlag{
			Name:  "gui",
			Usage: "Run the terminal console instead of reading commands from stdin",
		},
		cli.StringFlag{
			Name:  "manual",
			Usage: "Path to the console manual shown by the GUI",
			Value: "full_node/cmd/usage.txt",
		},
	}
}

// NodeFlags holds knobs of the local ledger.
func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "difficulty",
			Usage: "Leading zero hex digits required of a block hash",
		},
		cli.IntFlag{
			Name:  "time_limit",
			Usage: "Static wait in seconds at which a vehicle counts as in traffic",
		},
		cli.BoolFlag{
			Name:  "strict",
			Usage: "Also check hash linkage and difficulty when validating blocks",
		},
		cli.IntFlag{
			Name:  "vehicles",
			Usage: "Bootstrap exactly this many vehicles instead of a random count",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Seed of the random source, 0 picks one from the clock",
		},
	}
}

// NetworkFlags covers listeners and peers.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "listen",
			Usage: "host:port of the peer and vehicle listener",
		},
		cli.StringFlag{
			Name:  "admin",
			Usage: "host:port of the gRPC admin service",
		},
		cli.StringFlag{
			Name:  "http",
			Usage: "host:port of the HTTP status API",
		},
		cli.StringFlag{
			Name:  "peers",
			Usage: "Comma-separated host:port list of peers",
		},
		cli.DurationFlag{
			Name:  "report_interval",
			Usage: "Interval between two location reports of a vehicle",
		},
	}
}

// SinkFlags select where vehicle records go.
func SinkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "sink",
			Usage: "Record sinks, comma separated (csv|nats|redis|postgres|none)",
		},
		cli.StringFlag{
			Name:  "datadir",
			Usage: "Directory of csv records and chain dumps",
		},
		cli.StringFlag{
			Name:  "nats.url",
			Usage: "NATS server URL",
		},
		cli.StringFlag{
			Name:  "redis.url",
			Usage: "Redis URL or host:port",
		},
		cli.StringFlag{
			Name:  "db.url",
			Usage: "PostgreSQL connection string",
		},
		cli.DurationFlag{
			Name:  "sink.timeout",
			Usage: "Deadline of a single record append",
		},
	}
}

// ApplyOverrides copies every flag set on the command line into cfg.
func ApplyOverrides(ctx *cli.Context, cfg *config.AppConfig) {
	if ctx.IsSet("log.level") {
		cfg.LOG_LEVEL = ctx.String("log.level")
	}
	if ctx.IsSet("difficulty") {
		cfg.DIFFICULTY = ctx.Int("difficulty")
	}
	if ctx.IsSet("time_limit") {
		cfg.TIME_LIMIT = ctx.Int("time_limit")
	}
	if ctx.Bool("strict") {
		cfg.STRICT_VALIDATION = true
	}
	if ctx.IsSet("vehicles") {
		cfg.VEHICLE_COUNT_MIN = ctx.Int("vehicles")
		cfg.VEHICLE_COUNT_MAX = ctx.Int("vehicles")
	}
	if ctx.IsSet("listen") {
		cfg.LISTEN_ADDR = ctx.String("listen")
	}
	if ctx.IsSet("admin") {
		cfg.ADMIN_ADDR = ctx.String("admin")
	}
	if ctx.IsSet("http") {
		cfg.HTTP_ADDR = ctx.String("http")
	}
	if ctx.IsSet("peers") {
		cfg.PEERS = splitCSV(ctx.String("peers"))
	}
	if ctx.IsSet("report_interval") {
		cfg.REPORT_INTERVAL = ctx.Duration("report_interval")
	}
	if ctx.IsSet("sink") {
		cfg.SINK = ctx.String("sink")
	}
	if ctx.IsSet("datadir") {
		cfg.DATA_DIR = ctx.String("datadir")
	}
	if ctx.IsSet("nats.url") {
		cfg.NATS_URL = ctx.String("nats.url")
	}
	if ctx.IsSet("redis.url") {
		cfg.REDIS_URL = ctx.String("redis.url")
	}
	if ctx.IsSet("db.url") {
		cfg.DATABASE_URL = ctx.String("db.url")
	}
	if ctx.IsSet("sink.timeout") {
		cfg.SINK_TIMEOUT = ctx.Duration("sink.timeout")
	}
}

func splitCSV(s string) []string {
	var res []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
