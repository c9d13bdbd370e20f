// Package shard implements the regional database routing core: a fixed
// registry of region keys, a connection router handing out per-shard pools,
// a fan-out aggregator for cross-shard reads, and a first-match-wins finder.
package shard

import (
	"strings"

	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

// Key identifies one regional shard by its canonical lowercase name.
type Key string

const (
	Dhaka   Key = "dhaka"
	Khulna  Key = "khulna"
	Rajsahi Key = "rajsahi"
)

var labels = map[Key]string{
	Dhaka:   "Dhaka",
	Khulna:  "Khulna",
	Rajsahi: "Rajsahi",
}

// All returns the fixed shard set. The set is closed at compile time; there
// is no dynamic shard registration.
func All() []Key {
	return []Key{Dhaka, Khulna, Rajsahi}
}

// LookupOrder is the fixed priority order used when the owning shard of a
// record is unknown (login by email, course lookup by teacher email).
func LookupOrder() []Key {
	return []Key{Dhaka, Rajsahi, Khulna}
}

// Label returns the human-facing region name used to tag cross-shard results.
func (k Key) Label() string {
	if label, ok := labels[k]; ok {
		return label
	}
	return string(k)
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Resolve canonicalises a client-supplied location into a shard key.
// Matching is case-insensitive; anything outside the closed set fails with
// an invalid-location error before any connection is touched.
func Resolve(raw string) (Key, error) {
	key := Key(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := labels[key]; !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidLocation, "invalid database location: "+raw)
	}
	return key, nil
}

// IsValid reports whether the raw location resolves to a known shard.
func IsValid(raw string) bool {
	_, err := Resolve(raw)
	return err == nil
}
