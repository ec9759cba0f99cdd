package platform

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// localtimePath is the zoneinfo link most Unix hosts use for the system zone.
const localtimePath = "/etc/localtime"

// LocalZone returns the host time zone loaded under its IANA name.
// TZ wins over the /etc/localtime link; UTC is used when neither names a loadable zone.
func LocalZone() *time.Location {
	return localZone(os.Getenv("TZ"), os.Readlink)
}

func localZone(tz string, readlink func(string) (string, error)) *time.Location {
	if loc, ok := loadZone(tz); ok {
		return loc
	}
	if target, err := readlink(localtimePath); err == nil {
		if loc, ok := loadZone(target); ok {
			return loc
		}
	}
	return time.UTC
}

// loadZone loads a TZ value or zoneinfo file path by its IANA name.
func loadZone(raw string) (*time.Location, bool) {
	name := strings.TrimPrefix(strings.TrimSpace(raw), ":")
	if _, rest, ok := strings.Cut(filepath.ToSlash(name), "zoneinfo/"); ok {
		name = rest
	}
	if name == "" || name == "Local" || filepath.IsAbs(name) {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}
