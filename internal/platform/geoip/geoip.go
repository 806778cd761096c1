// Package geoip wraps an immutable MaxMind database for country and region
// lookups.
//
// The database is opened once at process start and injected into handlers;
// it is never reloaded. Readers are safe for concurrent use, so a single
// *DB serves all requests for the process lifetime.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Location is the subset of the geolocation record the gateway uses.
type Location struct {
	CountryCode string
	Region      string
}

// DB answers country/region queries from a memory-mapped .mmdb file.
type DB struct {
	reader *maxminddb.Reader
}

// Open memory-maps the database at path. Call Close when the process exits.
func Open(path string) (*DB, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geolocation database: %w", err)
	}
	return &DB{reader: reader}, nil
}

type record struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"subdivisions"`
}

// Lookup resolves an IP address to a location. Unroutable or unknown
// addresses return an empty location, not an error.
func (db *DB) Lookup(addr string) (Location, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return Location{}, fmt.Errorf("invalid IP address %q", addr)
	}

	var rec record
	if err := db.reader.Lookup(ip, &rec); err != nil {
		return Location{}, fmt.Errorf("geolocation lookup: %w", err)
	}

	loc := Location{CountryCode: rec.Country.ISOCode}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].ISOCode
	}
	return loc, nil
}

// Close unmaps the database.
func (db *DB) Close() error {
	return db.reader.Close()
}
