package models

const (
	DefaultSearchRadiusInMeters = 600
	QuerySearchRadiusInMeters   = 10000
)

const (
	DefaultMaxCountForStops = 100
	MaxAllowedCount         = 250
)
