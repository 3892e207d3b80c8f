// Package geoip resolves source addresses to ISO country codes for block
// alerts and audit records.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Locator maps an address to an ISO 3166-1 country code, or "" when unknown
type Locator interface {
	CountryCode(ipAddress string) string
}

// NoopLocator never resolves anything
type NoopLocator struct{}

func (NoopLocator) CountryCode(string) string { return "" }

// Reader looks addresses up in a MaxMind GeoLite2/GeoIP2 Country or City database
type Reader struct {
	db *geoip2.Reader
}

// Open opens an .mmdb file
func Open(path string) (*Reader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &Reader{db: db}, nil
}

// CountryCode returns the country for ipAddress. Private, invalid and
// unlisted addresses yield "".
func (r *Reader) CountryCode(ipAddress string) string {
	ip := net.ParseIP(ipAddress)
	if ip == nil || ip.IsPrivate() || ip.IsLoopback() {
		return ""
	}

	record, err := r.db.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// Close releases the database
func (r *Reader) Close() error {
	return r.db.Close()
}
