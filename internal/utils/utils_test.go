package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 0.0, Distance(40.75, -73.98, 40.75, -73.98))

	// Times Sq-42 St to 34 St-Herald Sq is roughly 640 m.
	d := Distance(40.75529, -73.987495, 40.749567, -73.98795)
	assert.InDelta(t, 637, d, 15)

	assert.InDelta(t, Distance(1, 2, 3, 4), Distance(3, 4, 1, 2), 1e-9)
}

func TestCalculateBounds(t *testing.T) {
	b := CalculateBounds(40.75, -73.98, 1000)

	assert.Less(t, b.MinLat, 40.75)
	assert.Greater(t, b.MaxLat, 40.75)
	assert.Less(t, b.MinLon, -73.98)
	assert.Greater(t, b.MaxLon, -73.98)

	assert.InDelta(t, 1000, Distance(40.75, -73.98, b.MaxLat, -73.98), 1)
	assert.InDelta(t, 1000, Distance(40.75, -73.98, 40.75, b.MaxLon), 5)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("1..S03R"))
	assert.NoError(t, ValidateID("AFA23GEN-1038-Weekday-00_000600_1..S03R"))
	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("bad id"))
	assert.Error(t, ValidateID("<script>"))
	assert.Error(t, ValidateID(string(make([]byte, 101))))
}

func TestParseFloatParam(t *testing.T) {
	tests := []struct {
		name          string
		params        url.Values
		expectedValue float64
		expectError   bool
	}{
		{"valid", url.Values{"lat": {"40.5"}}, 40.5, false},
		{"negative", url.Values{"lat": {"-73.9"}}, -73.9, false},
		{"missing", url.Values{}, 0, false},
		{"invalid", url.Values{"lat": {"north"}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, fieldErrors := ParseFloatParam(tt.params, "lat", nil)
			assert.Equal(t, tt.expectedValue, value)
			if tt.expectError {
				assert.NotEmpty(t, fieldErrors["lat"])
			} else {
				assert.Empty(t, fieldErrors["lat"])
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	assert.Nil(t, ValidateLocation(40.75, -73.98, 500))

	errs := ValidateLocation(91, -181, 0)
	assert.Contains(t, errs, "lat")
	assert.Contains(t, errs, "lon")
	assert.Contains(t, errs, "radius")
}
