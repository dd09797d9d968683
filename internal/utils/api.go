package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateID accepts the characters found in transit identifiers.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > 100 {
		return errors.New("id too long (max 100 characters)")
	}
	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}
	return nil
}

// ParseFloatParam retrieves a float64 value from the provided URL query parameters.
// A missing key yields 0 with no error; an invalid value is recorded in fieldErrors.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return 0, fieldErrors
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
		return 0, fieldErrors
	}
	return f, fieldErrors
}

// ValidateLocation checks latitude, longitude and a search radius in meters.
func ValidateLocation(lat, lon, radius float64) map[string][]string {
	fieldErrors := make(map[string][]string)
	if lat < -90 || lat > 90 {
		fieldErrors["lat"] = append(fieldErrors["lat"], "latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		fieldErrors["lon"] = append(fieldErrors["lon"], "longitude must be between -180 and 180")
	}
	if radius <= 0 || radius > 10000 {
		fieldErrors["radius"] = append(fieldErrors["radius"], "radius must be between 0 and 10000 meters")
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}
