// Package geo computes great-circle distances and ranks candidates around an origin.
package geo

import (
	"fmt"
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects non-finite or out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("coordinates must be finite: lat=%v lng=%v", p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lng)
	}
	return nil
}

// Distance returns the haversine distance in kilometres between a and b.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

func haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Locatable is anything that may expose a position. ok=false means the location is unknown.
type Locatable interface {
	Position() (Point, bool)
}

// Options controls filtering and ordering of Match results.
type Options struct {
	// MaxDistanceKm filters out candidates further than this. Zero disables filtering.
	MaxDistanceKm float64
	// Sort orders candidates with a known distance ascending; unknown ones follow in input order.
	Sort bool
}

// Result annotates a candidate with its distance. DistanceKm is nil when the candidate has no location.
type Result[T Locatable] struct {
	Item       T        `json:"item"`
	DistanceKm *float64 `json:"distance_km"`
}

// Known reports whether the distance could be computed.
func (r Result[T]) Known() bool {
	return r.DistanceKm != nil
}

// Match annotates candidates with their distance from origin, then optionally filters and sorts them.
// Candidates without a location are kept but never filtered or sorted by distance.
func Match[T Locatable](origin Point, candidates []T, opts Options) ([]Result[T], error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}
	if math.IsNaN(opts.MaxDistanceKm) || math.IsInf(opts.MaxDistanceKm, 0) || opts.MaxDistanceKm < 0 {
		return nil, fmt.Errorf("invalid max distance %v", opts.MaxDistanceKm)
	}

	results := make([]Result[T], 0, len(candidates))
	for i, candidate := range candidates {
		pos, ok := candidate.Position()
		if !ok {
			results = append(results, Result[T]{Item: candidate})
			continue
		}
		if err := pos.Validate(); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		d := haversine(origin, pos)
		if opts.MaxDistanceKm > 0 && d > opts.MaxDistanceKm {
			continue
		}
		results = append(results, Result[T]{Item: candidate, DistanceKm: &d})
	}

	if opts.Sort {
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i].DistanceKm, results[j].DistanceKm
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return *a < *b
			}
		})
	}

	return results, nil
}
