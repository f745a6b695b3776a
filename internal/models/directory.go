package models

import "github.com/noah-isme/swimcoach/pkg/geo"

// DescriptionKind discriminates instructor descriptions.
type DescriptionKind string

const (
	DescriptionNone       DescriptionKind = ""
	DescriptionBio        DescriptionKind = "bio"
	DescriptionStructured DescriptionKind = "structured"
)

// InstructorProfile is the structured form of an instructor description.
type InstructorProfile struct {
	Headline       string   `json:"headline,omitempty"`
	Experience     string   `json:"experience,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Specialties    []string `json:"specialties,omitempty"`
}

// InstructorDescription is either a plain bio string or a structured profile.
type InstructorDescription struct {
	Kind    DescriptionKind    `json:"kind"`
	Bio     string             `json:"bio,omitempty"`
	Profile *InstructorProfile `json:"profile,omitempty"`
}

// Instructor is a directory entry used by geo search.
type Instructor struct {
	ID          string                `json:"instructor_id"`
	Name        string                `json:"name"`
	Rating      float64               `json:"rating,omitempty"`
	Description InstructorDescription `json:"description"`
	Location    *Location             `json:"location,omitempty"`
}

// Position implements geo.Locatable.
func (i Instructor) Position() (geo.Point, bool) {
	if i.Location == nil {
		return geo.Point{}, false
	}
	return i.Location.Point(), true
}

// Course is a directory entry offered by an instructor.
type Course struct {
	ID           string    `json:"course_id"`
	Title        string    `json:"title"`
	InstructorID string    `json:"instructor_id"`
	Level        string    `json:"level,omitempty"`
	Price        float64   `json:"price"`
	MaxSessions  int       `json:"max_sessions,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// Position implements geo.Locatable.
func (c Course) Position() (geo.Point, bool) {
	if c.Location == nil {
		return geo.Point{}, false
	}
	return c.Location.Point(), true
}
