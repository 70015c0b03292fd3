package config

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// GenesisHash is the placeholder every vehicle carries as its previous record hash
// until its first record is written.
var GenesisHash = strings.Repeat("0", 64)

// This is the global app config for the vehicle ledger.
type AppConfig struct {
	// How many leading '0' hex characters form a valid block hash.
	DIFFICULTY int `yaml:"difficulty"`
	// Static wait, in seconds, at or above which a vehicle is flagged as in traffic.
	TIME_LIMIT int `yaml:"time_limit"`
	// Also verify hash linkage and difficulty prefix when validating blocks.
	STRICT_VALIDATION bool `yaml:"strict_validation"`

	// Random ranges used at registration and on every location update. Bounds are inclusive.
	STATIC_WAIT_MIN    int `yaml:"static_wait_min"`
	STATIC_WAIT_MAX    int `yaml:"static_wait_max"`
	TOTAL_DURATION_MIN int `yaml:"total_duration_min"`
	TOTAL_DURATION_MAX int `yaml:"total_duration_max"`
	VELOCITY_MIN       int `yaml:"velocity_min"`
	VELOCITY_MAX       int `yaml:"velocity_max"`

	// How many vehicles the node bootstraps with.
	VEHICLE_COUNT_MIN int `yaml:"vehicle_count_min"`
	VEHICLE_COUNT_MAX int `yaml:"vehicle_count_max"`

	// Address the peer listener binds to and vehicles report to.
	LISTEN_ADDR string `yaml:"listen_addr"`
	// Address of the gRPC admin service, empty disables it.
	ADMIN_ADDR string `yaml:"admin_addr"`
	// Address of the HTTP status API, empty disables it.
	HTTP_ADDR string `yaml:"http_addr"`
	// Known peers in host:port form.
	PEERS []string `yaml:"peers"`
	// Interval between two location reports of the same vehicle.
	REPORT_INTERVAL time.Duration `yaml:"report_interval"`
	// Dial, read and write deadline for a single peer exchange.
	PEER_TIMEOUT time.Duration `yaml:"peer_timeout"`
	// Upper bound on a GET_BLOCKCHAIN response. Every block carries the whole fleet, about
	// 380 bytes per vehicle, so this caps height times fleet size.
	MAX_CHAIN_BYTES int `yaml:"max_chain_bytes"`

	// Record sink: csv, nats, redis, postgres or none. Several can be joined with commas.
	SINK         string `yaml:"sink"`
	DATA_DIR     string `yaml:"data_dir"`
	NATS_URL     string `yaml:"nats_url"`
	NATS_SUBJECT string `yaml:"nats_subject"`
	REDIS_URL    string `yaml:"redis_url"`
	DATABASE_URL string `yaml:"database_url"`
	// Deadline of a single sink append. It runs under the ledger lock.
	SINK_TIMEOUT time.Duration `yaml:"sink_timeout"`

	LOG_LEVEL string `yaml:"log_level"`
}

// Default returns the configuration the node runs with when no file is given.
func Default() AppConfig {
	return AppConfig{
		DIFFICULTY:         2,
		TIME_LIMIT:         100,
		STATIC_WAIT_MIN:    20,
		STATIC_WAIT_MAX:    150,
		TOTAL_DURATION_MIN: 855,
		TOTAL_DURATION_MAX: 2370,
		VELOCITY_MIN:       8,
		VELOCITY_MAX:       23,
		VEHICLE_COUNT_MIN:  250,
		VEHICLE_COUNT_MAX:  300,
		LISTEN_ADDR:        "localhost:5000",
		REPORT_INTERVAL:    5 * time.Second,
		PEER_TIMEOUT:       10 * time.Second,
		MAX_CHAIN_BYTES:    64 << 20,
		SINK:               "csv",
		DATA_DIR:           "data",
		NATS_SUBJECT:       "vehicles.records",
		SINK_TIMEOUT:       time.Second,
		LOG_LEVEL:          "info",
	}
}

// Load reads a YAML file and overlays it on Default. Fields missing from the file keep
// their default values.
func Load(path string) (AppConfig, error) {
	c := Default()
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate rejects configurations the ledger cannot run with.
func (c AppConfig) Validate() error {
	if c.DIFFICULTY < 0 || c.DIFFICULTY > 64 {
		return fmt.Errorf("difficulty must be within [0, 64], got %d", c.DIFFICULTY)
	}
	ranges := []struct {
		name     string
		min, max int
	}{
		{"static_wait", c.STATIC_WAIT_MIN, c.STATIC_WAIT_MAX},
		{"total_duration", c.TOTAL_DURATION_MIN, c.TOTAL_DURATION_MAX},
		{"velocity", c.VELOCITY_MIN, c.VELOCITY_MAX},
		{"vehicle_count", c.VEHICLE_COUNT_MIN, c.VEHICLE_COUNT_MAX},
	}
	for _, r := range ranges {
		if r.min < 0 || r.min > r.max {
			return fmt.Errorf("invalid %s range [%d, %d]", r.name, r.min, r.max)
		}
	}
	if c.REPORT_INTERVAL <= 0 {
		return fmt.Errorf("report_interval must be positive")
	}
	if c.MAX_CHAIN_BYTES <= 0 {
		return fmt.Errorf("max_chain_bytes must be positive")
	}
	return nil
}
