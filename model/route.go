package model

import "sort"

// GenesisRoute is where every vehicle starts. It is never picked again once a vehicle
// leaves it.
const GenesisRoute = "RouteZ"

// A fixed route through the city.
type Route struct {
	// Name identifies the route, e.g. "RouteA".
	Name string
	// Total distance of the route.
	Distance int
	// Stops in the order a vehicle visits them. Never empty.
	Stops []string
}

// RouteTable maps route name to route. Loaded once and never mutated.
type RouteTable map[string]Route

// DefaultRoutes returns the route table the simulation runs on.
func DefaultRoutes() RouteTable {
	return RouteTable{
		GenesisRoute: {Name: GenesisRoute, Distance: 0, Stops: []string{"LocationZ"}},
		"RouteA":     {Name: "RouteA", Distance: 22000, Stops: []string{"LocationA", "LocationB", "LocationC", "LocationD"}},
		"RouteB":     {Name: "RouteB", Distance: 7000, Stops: []string{"LocationE", "LocationF", "LocationG"}},
		"RouteC":     {Name: "RouteC", Distance: 40000, Stops: []string{"LocationH", "LocationI", "LocationJ", "LocationK", "LocationL"}},
		"RouteD":     {Name: "RouteD", Distance: 55000, Stops: []string{"LocationM", "LocationN", "LocationO", "LocationP", "LocationQ", "LocationR"}},
	}
}

// Candidates returns the names of every non-genesis route, sorted so that a random draw
// over them is reproducible.
func (t RouteTable) Candidates() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		if name != GenesisRoute {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
