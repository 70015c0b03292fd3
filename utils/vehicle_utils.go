package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Luismorlan/vehicle_ledger/config"
	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
)

// Precision, in decimal places, of a computed velocity.
const velocityPlaces = 4

// NewVehicle creates a vehicle parked on the genesis route with randomized timing.
func NewVehicle(owner, license string, port int, now time.Time, c config.AppConfig, r RandomSource) *model.Vehicle {
	return &model.Vehicle{
		Owner:         owner,
		License:       license,
		Port:          port,
		Route:         model.GenesisRoute,
		LastMove:      now,
		StaticWait:    RandRange(r, c.STATIC_WAIT_MIN, c.STATIC_WAIT_MAX),
		TotalDuration: RandRange(r, c.TOTAL_DURATION_MIN, c.TOTAL_DURATION_MAX),
		Velocity:      float64(RandRange(r, c.VELOCITY_MIN, c.VELOCITY_MAX)),
		Visited:       make(map[string]bool),
		InTraffic:     true,
		PrevHash:      config.GenesisHash,
	}
}

// CurrentStop returns the stop the vehicle is expected to report next.
func CurrentStop(v *model.Vehicle, routes model.RouteTable) string {
	return routes[v.Route].Stops[v.StopIndex]
}

// CompleteRoute reports whether every stop of the current route has been visited.
func CompleteRoute(v *model.Vehicle, routes model.RouteTable) bool {
	stops := routes[v.Route].Stops
	seen := make(map[string]bool, len(stops))
	for _, s := range stops {
		if !v.Visited[s] {
			return false
		}
		seen[s] = true
	}
	return len(seen) == len(v.Visited)
}

// Advance moves the vehicle to its next stop, rolling over to a fresh route after the last one.
func Advance(v *model.Vehicle, routes model.RouteTable, r RandomSource) {
	if v.StopIndex < len(routes[v.Route].Stops)-1 {
		v.StopIndex++
		return
	}
	v.StopIndex = 0
	UpdateRoute(v, routes, r)
}

// UpdateRoute credits a completed lap, then assigns a random non-genesis route and clears
// the visited set.
func UpdateRoute(v *model.Vehicle, routes model.RouteTable, r RandomSource) {
	if CompleteRoute(v, routes) {
		v.Stake++
	}
	candidates := routes.Candidates()
	if len(candidates) > 0 {
		v.Route = candidates[r.Intn(len(candidates))]
	}
	v.Visited = make(map[string]bool)
	v.StopIndex = 0
}

// RecordArrival applies one location report. The reported stop only counts as visited if it
// is the stop the vehicle was expected at; the vehicle moves on either way.
func RecordArrival(v *model.Vehicle, reported string, now time.Time, routes model.RouteTable, c config.AppConfig, r RandomSource) {
	if reported == CurrentStop(v, routes) {
		v.Visited[reported] = true
	}
	Advance(v, routes, r)

	elapsed := now.Sub(v.LastMove).Seconds()
	v.LastMove = now

	v.StaticWait = RandRange(r, c.STATIC_WAIT_MIN, c.STATIC_WAIT_MAX)
	jitter := RandRange(r, c.TOTAL_DURATION_MIN, c.TOTAL_DURATION_MAX)
	v.TotalDuration += int(elapsed + float64(jitter) + float64(v.StaticWait))

	v.InTraffic = v.StaticWait >= c.TIME_LIMIT
	v.Velocity = Velocity(routes[v.Route].Distance, v.TotalDuration)
	v.Count++
}

// Velocity divides distance by duration, rounded to a fixed number of places.
func Velocity(distance, duration int) float64 {
	if duration <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(distance)).
		DivRound(decimal.NewFromInt(int64(duration)), velocityPlaces).
		InexactFloat64()
}

// ComputeVehicleHash hashes the fields that identify a vehicle record, chained onto the
// vehicle's previous record hash.
func ComputeVehicleHash(v *model.Vehicle) string {
	s := fmt.Sprintf("%s%s%s%d%d%d%s%s",
		v.Owner, v.License, v.Route, v.StopIndex, v.StaticWait, v.TotalDuration,
		strconv.FormatFloat(v.Velocity, 'f', -1, 64), v.PrevHash)
	return SHA256Hex([]byte(s))
}

// NewVehicleRecord builds the record persisted after a location update. Hash chains onto
// the vehicle's current PrevHash.
func NewVehicleRecord(v *model.Vehicle, now time.Time, routes model.RouteTable) model.VehicleRecord {
	return model.VehicleRecord{
		Sequence:      v.Count,
		Owner:         v.Owner,
		License:       v.License,
		Route:         v.Route,
		Stop:          CurrentStop(v, routes),
		Distance:      routes[v.Route].Distance,
		Timestamp:     now,
		StaticWait:    v.StaticWait,
		TotalDuration: v.TotalDuration,
		Velocity:      v.Velocity,
		PrevHash:      v.PrevHash,
		Hash:          ComputeVehicleHash(v),
		InTraffic:     v.InTraffic,
	}
}

// SnapshotVehicle copies a live vehicle into its block representation.
func SnapshotVehicle(v *model.Vehicle) (model.VehicleState, error) {
	state := model.VehicleState{}
	if err := copier.Copy(&state, v); err != nil {
		return state, err
	}
	state.VisitedStops = v.VisitedStops()
	return state, nil
}

// SnapshotVehicles copies every vehicle of the map. The result shares no memory with the input.
func SnapshotVehicles(vehicles map[string]*model.Vehicle) (map[string]model.VehicleState, error) {
	snapshot := make(map[string]model.VehicleState, len(vehicles))
	for owner, v := range vehicles {
		state, err := SnapshotVehicle(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot vehicle %s: %w", owner, err)
		}
		snapshot[owner] = state
	}
	return snapshot, nil
}
