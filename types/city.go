// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package types

import (
	"sort"
	"strings"
)

// City is a location a market can be opened for. IDs are the contract's city
// identifiers.
type City struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// NewYorkCityID is the geonames id the deployed markets use for New York.
const NewYorkCityID uint64 = 5128581

var cityCatalog = map[uint64]City{
	1: {ID: 1, Name: "New York", Country: "USA", Timezone: "America/New_York", Lat: 40.7128, Lon: -74.0060},
	2: {ID: 2, Name: "London", Country: "UK", Timezone: "Europe/London", Lat: 51.5074, Lon: -0.1278},
	3: {ID: 3, Name: "Tokyo", Country: "Japan", Timezone: "Asia/Tokyo", Lat: 35.6762, Lon: 139.6503},
	4: {ID: 4, Name: "Paris", Country: "France", Timezone: "Europe/Paris", Lat: 48.8566, Lon: 2.3522},
	5: {ID: 5, Name: "Sydney", Country: "Australia", Timezone: "Australia/Sydney", Lat: -33.8688, Lon: 151.2093},
	6: {ID: 6, Name: "Dubai", Country: "UAE", Timezone: "Asia/Dubai", Lat: 25.2048, Lon: 55.2708},
	7: {ID: 7, Name: "Singapore", Country: "Singapore", Timezone: "Asia/Singapore", Lat: 1.3521, Lon: 103.8198},
	8: {ID: 8, Name: "Shanghai", Country: "China", Timezone: "Asia/Shanghai", Lat: 31.2304, Lon: 121.4737},

	NewYorkCityID: {ID: NewYorkCityID, Name: "New York", Country: "USA", Timezone: "America/New_York", Lat: 40.7128, Lon: -74.0060},
	2643743:       {ID: 2643743, Name: "London", Country: "UK", Timezone: "Europe/London", Lat: 51.5074, Lon: -0.1278},
	1850147:       {ID: 1850147, Name: "Tokyo", Country: "Japan", Timezone: "Asia/Tokyo", Lat: 35.6762, Lon: 139.6503},
	2988507:       {ID: 2988507, Name: "Paris", Country: "France", Timezone: "Europe/Paris", Lat: 48.8566, Lon: 2.3522},
}

// Cities returns the catalog sorted by id.
func Cities() []City {
	out := make([]City, 0, len(cityCatalog))
	for _, c := range cityCatalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func CityByID(id uint64) (City, bool) {
	c, ok := cityCatalog[id]
	return c, ok
}

// CityName returns the catalog name or "Unknown City".
func CityName(id uint64) string {
	if c, ok := cityCatalog[id]; ok {
		return c.Name
	}
	return "Unknown City"
}

// CitiesByName returns every catalog entry whose name matches, case-insensitively.
func CitiesByName(name string) []City {
	var out []City
	for _, c := range Cities() {
		if strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out
}
