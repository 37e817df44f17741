package domain

import "strings"

// Region is where the user's cooking style comes from.
type Region int

const (
	RegionNorth Region = iota
	RegionSouth
	RegionEast
	RegionWest
)

// String returns the lowercase region name.
func (r Region) String() string {
	switch r {
	case RegionNorth:
		return "north"
	case RegionSouth:
		return "south"
	case RegionEast:
		return "east"
	case RegionWest:
		return "west"
	default:
		return "unknown"
	}
}

// ParseRegion maps a lowercase name to a Region.
func ParseRegion(name string) (Region, bool) {
	switch name {
	case "north":
		return RegionNorth, true
	case "south":
		return RegionSouth, true
	case "east":
		return RegionEast, true
	case "west":
		return RegionWest, true
	}
	return 0, false
}

// PreferenceType is the user's main constraint when choosing a dish.
type PreferenceType int

const (
	PreferenceNone PreferenceType = iota
	PreferenceDietary
	PreferenceCuisine
	PreferenceCookingTime
)

// String returns the snake_case name.
func (p PreferenceType) String() string {
	switch p {
	case PreferenceDietary:
		return "dietary"
	case PreferenceCuisine:
		return "cuisine"
	case PreferenceCookingTime:
		return "cooking_time"
	default:
		return "none"
	}
}

// ParsePreferenceType maps a snake_case name to a PreferenceType.
func ParsePreferenceType(name string) (PreferenceType, bool) {
	switch name {
	case "dietary":
		return PreferenceDietary, true
	case "cuisine":
		return PreferenceCuisine, true
	case "cooking_time":
		return PreferenceCookingTime, true
	case "none":
		return PreferenceNone, true
	}
	return 0, false
}

// Preferences are validated cooking preferences. Treat as immutable once
// returned by the validator. Allergies and Dislikes are never nil.
type Preferences struct {
	NumberOfPeople int
	SpiceLevel     int
	Region         Region
	PreferenceType PreferenceType
	Allergies      []string
	Dislikes       []string
}

// Avoids reports whether an ingredient mentions any allergy or dislike and
// returns the matching term. Matching is a case-insensitive substring test
// so "peanut" catches "Peanut oil".
func (p *Preferences) Avoids(ingredient string) (string, bool) {
	lower := strings.ToLower(ingredient)
	for _, terms := range [][]string{p.Allergies, p.Dislikes} {
		for _, t := range terms {
			if t != "" && strings.Contains(lower, t) {
				return t, true
			}
		}
	}
	return "", false
}
