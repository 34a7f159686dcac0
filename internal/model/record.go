package model

import (
	"slices"
	"time"
)

// Region is the market region attached to a stored record.
type Region string

// Region constants.
const (
	// RegionUnknown represents an unassigned region.
	RegionUnknown Region = ""
	// RegionNorthAmerica represents North America.
	RegionNorthAmerica Region = "north_america"
	// RegionEurope represents Europe.
	RegionEurope Region = "europe"
	// RegionMiddleEast represents the Middle East.
	RegionMiddleEast Region = "middle_east"
)

// String returns the string representation of the Region.
func (r Region) String() string {
	if r == RegionUnknown {
		return unknownStr
	}
	return string(r)
}

// IsValid returns true if this is a known region.
func (r Region) IsValid() bool {
	switch r {
	case RegionNorthAmerica, RegionEurope, RegionMiddleEast:
		return true
	default:
		return false
	}
}

// ParseRegion converts a string to Region.
func ParseRegion(s string) Region {
	switch s {
	case "north_america", "north-america", "na", "us":
		return RegionNorthAmerica
	case "europe", "eu", "uk":
		return RegionEurope
	case "middle_east", "middle-east", "me", "ae":
		return RegionMiddleEast
	default:
		return RegionUnknown
	}
}

// Record is the tuple handed to the record store for one target.
type Record struct {
	// Domain is the bare host; the store key.
	Domain string `json:"domain"`

	// Region is the region the record is ranked in.
	Region Region `json:"region"`

	// PlatformVerdict is the platform detection verdict.
	PlatformVerdict bool `json:"platform_verdict"`

	// PlatformConfidence is the platform detection confidence.
	PlatformConfidence float64 `json:"platform_confidence"`

	// CategoryVerdict is the category classification verdict.
	CategoryVerdict bool `json:"category_verdict"`

	// CategoryConfidence is the category classification confidence.
	CategoryConfidence float64 `json:"category_confidence"`

	// CheckedAt is when the classification ran.
	CheckedAt time.Time `json:"checked_at"`

	// RunID identifies the batch run that produced the record.
	RunID string `json:"run_id,omitempty"`

	// Error is the fetch diagnostic, if any.
	Error string `json:"error,omitempty"`

	// Kinds lists the task kinds this record carries results for.
	// Nil means every kind. The store leaves the stored values of other
	// kinds untouched.
	Kinds []TaskKind `json:"-"`
}

// Covers reports whether the record carries a result for kind.
func (r Record) Covers(kind TaskKind) bool {
	return r.Kinds == nil || slices.Contains(r.Kinds, kind)
}

