package transit

import "fmt"

// StationIDLength is the length of a parent-station external stop id.
const StationIDLength = 3

// FormatStationID strips a trailing N/S direction suffix from a platform stop
// id and requires the remainder to be exactly three digits.
func FormatStationID(stopID string) (string, error) {
	id := stopID
	if n := len(id); n > 0 && (id[n-1] == 'N' || id[n-1] == 'S') {
		id = id[:n-1]
	}

	if len(id) != StationIDLength || !allDigits(id) {
		return "", fmt.Errorf("%w: invalid station id format %q", ErrValidation, stopID)
	}
	return id, nil
}

// StationPrefix returns the first three characters of a raw stop id, which
// drops any direction suffix from a static-feed platform id.
func StationPrefix(stopID string) string {
	if len(stopID) <= StationIDLength {
		return stopID
	}
	return stopID[:StationIDLength]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
