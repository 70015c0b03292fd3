package model

import (
	"sort"
	"time"
)

// Vehicle is the live state of one registered vehicle. It is owned by the ledger and only
// mutated while the ledger lock is held.
type Vehicle struct {
	// Unique key of the vehicle in the ledger.
	Owner   string
	License string
	Port    int
	// Name of the route the vehicle is currently driving.
	Route string
	// Index into the current route's stops. Always within [0, len(stops)-1].
	StopIndex int
	LastMove  time.Time
	// Seconds spent standing at the last stop.
	StaticWait int
	// Accumulated travel time in seconds.
	TotalDuration int
	Velocity      float64
	// Stops of the current route reported at the expected position.
	Visited   map[string]bool
	InTraffic bool
	// Number of location updates processed so far.
	Count int
	// Hash of the last record written for this vehicle.
	PrevHash string
	// Completed laps, used to weight validator selection.
	Stake int
}

// VisitedStops returns the visited set as a sorted slice.
func (v *Vehicle) VisitedStops() []string {
	stops := make([]string, 0, len(v.Visited))
	for s := range v.Visited {
		stops = append(stops, s)
	}
	sort.Strings(stops)
	return stops
}

// VehicleState is the frozen view of a vehicle stored inside a block. Every field is tagged
// so a remote snapshot can be decoded strictly.
type VehicleState struct {
	Owner         string   `json:"owner"`
	License       string   `json:"license"`
	Port          int      `json:"port"`
	Route         string   `json:"route"`
	StopIndex     int      `json:"stop_index"`
	StaticWait    int      `json:"static_wait"`
	TotalDuration int      `json:"total_duration"`
	Velocity      float64  `json:"velocity"`
	VisitedStops  []string `json:"visited"`
	InTraffic     bool     `json:"in_traffic"`
	Count         int      `json:"count"`
	PrevHash      string   `json:"previous_hash"`
	Stake         int      `json:"stake"`
}

// VehicleRecord is one row handed to the record sink after a location update.
type VehicleRecord struct {
	Sequence      int       `json:"sequence"`
	Owner         string    `json:"owner"`
	License       string    `json:"license"`
	Route         string    `json:"route"`
	Stop          string    `json:"stop"`
	Distance      int       `json:"distance"`
	Timestamp     time.Time `json:"timestamp"`
	StaticWait    int       `json:"static_wait"`
	TotalDuration int       `json:"total_duration"`
	Velocity      float64   `json:"velocity"`
	PrevHash      string    `json:"previous_hash"`
	Hash          string    `json:"hash"`
	InTraffic     bool      `json:"in_traffic"`
}
