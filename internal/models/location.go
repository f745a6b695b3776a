package models

import "github.com/noah-isme/swimcoach/pkg/geo"

// Location is shared by instructors, courses and search origins.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Point converts the location to a geo point.
func (l Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// RequestLocationKind discriminates how a course request location was supplied.
type RequestLocationKind string

const (
	RequestLocationNone        RequestLocationKind = ""
	RequestLocationText        RequestLocationKind = "text"
	RequestLocationCoordinates RequestLocationKind = "coordinates"
)

// RequestLocation is either free text or a coordinate pair.
type RequestLocation struct {
	Kind     RequestLocationKind `json:"kind,omitempty"`
	Text     string              `json:"text,omitempty"`
	Location *Location           `json:"location,omitempty"`
}

// Position implements geo.Locatable.
func (r RequestLocation) Position() (geo.Point, bool) {
	if r.Kind != RequestLocationCoordinates || r.Location == nil {
		return geo.Point{}, false
	}
	return r.Location.Point(), true
}
