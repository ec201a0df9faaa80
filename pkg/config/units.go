package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Day and Week extend the units time.ParseDuration knows.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// unitTable maps a unit suffix to its size in the base unit.
type unitTable map[string]float64

var (
	durationUnits = unitTable{
		"ns": float64(time.Nanosecond),
		"us": float64(time.Microsecond),
		"µs": float64(time.Microsecond),
		"ms": float64(time.Millisecond),
		"s":  float64(time.Second),
		"m":  float64(time.Minute),
		"h":  float64(time.Hour),
		"d":  float64(Day),
		"w":  float64(Week),
	}
	distanceUnits = unitTable{
		"m":  1,
		"km": 1000,
		"nm": 1852,
		"mi": 1609.344,
		"ft": 0.3048,
	}
)

// parse sums "<number><unit>" terms such as "2d2h" or "1.5km". A lone number
// without a unit is read in bareUnit.
func (u unitTable) parse(s, bareUnit string) (float64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	sign := 1.0
	if s[0] == '-' {
		sign, s = -1, s[1:]
	}

	var total float64
	for first := true; s != ""; first = false {
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' })
		num, rest := s, ""
		if end >= 0 {
			num, rest = s[:end], s[end:]
		}
		if num == "" {
			return 0, fmt.Errorf("invalid quantity %q", orig)
		}
		val, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in %q: %w", orig, err)
		}

		next := strings.IndexFunc(rest, unicode.IsDigit)
		unit := rest
		if next >= 0 {
			unit, rest = rest[:next], rest[next:]
		} else {
			rest = ""
		}
		unit = strings.TrimSpace(unit)
		if unit == "" {
			if !first || rest != "" {
				return 0, fmt.Errorf("missing unit in %q", orig)
			}
			unit = bareUnit
		}
		mult, ok := u[unit]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q in %q", unit, orig)
		}
		total += val * mult
		s = strings.TrimSpace(rest)
	}
	return sign * total, nil
}

// Duration is a time.Duration that also accepts d and w in YAML. A bare
// number is read as milliseconds.
type Duration time.Duration

// ParseDuration parses strings like "30s", "1.5h", "2d2h" or "500" (ms).
func ParseDuration(s string) (time.Duration, error) {
	v, err := durationUnits.parse(s, "ms")
	return time.Duration(v), err
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Distance is a length in meters that accepts m, km, nm, mi and ft in YAML.
// A bare number is read as meters.
type Distance float64

// ParseDistance parses strings like "500m", "2km" or "300ft" into meters.
func ParseDistance(s string) (float64, error) {
	return distanceUnits.parse(s, "m")
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	dist, err := ParseDistance(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Distance(dist)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Distance) MarshalYAML() (any, error) {
	return strconv.FormatFloat(float64(d), 'f', -1, 64) + "m", nil
}
