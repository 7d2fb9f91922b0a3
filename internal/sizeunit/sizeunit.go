// Package sizeunit parses and formats the unit-suffixed byte sizes accepted
// by dump/load options such as bytesPerChunk and maxRate ("64k", "4M", "2G").
package sizeunit

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"
)

// Parse converts a unit-suffixed size string into bytes. It accepts plain
// integers (bytes) and k, m, g, t, p suffixes in either case, optionally
// followed by "b" or "ib"; every suffix is a binary multiple (k = 1024), so
// "1kb" and "1KiB" both mean 1024 bytes.
func Parse(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("sizeunit: empty size")
	}

	n, err := units.RAMInBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("sizeunit: invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("sizeunit: size %q must not be negative", s)
	}
	return n, nil
}

// Format renders a byte count the way progress output and summaries display
// it, e.g. "64 MB".
func Format(n int64) string {
	if n < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(n))
}

// MustParse is Parse but panics on error. Reserved for option defaults known
// to be valid at compile time.
func MustParse(s string) int64 {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}
