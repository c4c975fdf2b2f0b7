// Package validate holds the pure admission rules shared by the listing and
// purchase services. Every function is deterministic and side-effect free.
package validate

import (
	"errors"
	"strconv"
	"strings"
)

// AllowedImageExtensions is the fixed whitelist for listing images.
var AllowedImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"webp": {},
}

var (
	ErrInvalidNumber    = errors.New("price must be a valid number")
	ErrNonPositivePrice = errors.New("price must be greater than 0")
)

// AllowedImageExtension reports whether filename has a whitelisted image
// extension. Filenames without a dot are rejected.
func AllowedImageExtension(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	_, ok := AllowedImageExtensions[strings.ToLower(filename[i+1:])]
	return ok
}

// CampusEmail reports whether email belongs to the configured campus domain
// (case-insensitive suffix match on "@domain").
func CampusEmail(email, domain string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(domain))
}

// ParsePrice parses a raw price string. It fails with ErrInvalidNumber for
// unparseable input and ErrNonPositivePrice for values <= 0.
func ParsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	if price <= 0 {
		return 0, ErrNonPositivePrice
	}
	return price, nil
}
