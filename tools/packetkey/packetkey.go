package packetkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is the sortable prefix embedded in every packet key.
const timestampLayout = "20060102150405"

// Generate builds a packet key of the form
// "YYYYMMDDHHMMSS_<WellNoSpaces>_<rand>". The timestamp prefix records
// arrival time so the watchdog can judge staleness without extra metadata.
func Generate(t time.Time, wellName string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return t.UTC().Format(timestampLayout) + "_" + StripSpaces(wellName) + "_" + suffix
}

// ArrivalTime extracts the arrival timestamp embedded in a packet key.
// Keys that don't carry a parsable prefix return an error; the watchdog
// treats those as already stale.
func ArrivalTime(key string) (time.Time, error) {
	prefix, _, found := strings.Cut(key, "_")
	if !found || len(prefix) != len(timestampLayout) {
		return time.Time{}, fmt.Errorf("packet key %q has no timestamp prefix", key)
	}
	t, err := time.Parse(timestampLayout, prefix)
	if err != nil {
		return time.Time{}, fmt.Errorf("packet key %q has invalid timestamp prefix: %w", key, err)
	}
	return t, nil
}

// WellName extracts the well-name segment of a packet key (spaces already
// stripped). Returns empty string if the key doesn't follow the format.
func WellName(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[1:len(parts)-1], "_")
}

// StripSpaces normalizes a well name into its legacy no-space key form.
func StripSpaces(wellName string) string {
	return strings.ReplaceAll(wellName, " ", "")
}
