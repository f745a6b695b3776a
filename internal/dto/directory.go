package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/noah-isme/swimcoach/internal/models"
)

type wireProfile struct {
	Headline       flexString `json:"headline"`
	Title          flexString `json:"title"`
	Experience     flexString `json:"experience"`
	Certifications []string   `json:"certifications"`
	Specialties    []string   `json:"specialties"`
	Bio            flexString `json:"bio"`
}

type wireInstructor struct {
	ID          flexString      `json:"instructor_id"`
	IDCamel     flexString      `json:"instructorId"`
	IDPlain     flexString      `json:"id"`
	Name        flexString      `json:"name"`
	FullName    flexString      `json:"full_name"`
	Rating      flexFloat       `json:"rating"`
	Description json.RawMessage `json:"description"`
	Location    json.RawMessage `json:"location"`
	Lat         flexFloat       `json:"lat"`
	Lng         flexFloat       `json:"lng"`
}

func (w wireInstructor) normalize() models.Instructor {
	return models.Instructor{
		ID:          firstString(w.ID, w.IDCamel, w.IDPlain),
		Name:        firstString(w.Name, w.FullName),
		Rating:      firstFloat(0, w.Rating),
		Description: ParseDescription(w.Description),
		Location:    parseEntityLocation(w.Location, w.Lat, w.Lng),
	}
}

type wireCourse struct {
	ID              flexString      `json:"course_id"`
	IDCamel         flexString      `json:"courseId"`
	IDPlain         flexString      `json:"id"`
	Title           flexString      `json:"title"`
	Name            flexString      `json:"name"`
	InstructorID    flexString      `json:"instructor_id"`
	InstructorCamel flexString      `json:"instructorId"`
	Level           flexString      `json:"level"`
	Price           flexFloat       `json:"price"`
	MaxSessions     flexInt         `json:"max_sessions"`
	MaxSessionsAlt  flexInt         `json:"maxSessions"`
	Location        json.RawMessage `json:"location"`
	Lat             flexFloat       `json:"lat"`
	Lng             flexFloat       `json:"lng"`
}

func (w wireCourse) normalize() models.Course {
	return models.Course{
		ID:           firstString(w.ID, w.IDCamel, w.IDPlain),
		Title:        firstString(w.Title, w.Name),
		InstructorID: firstString(w.InstructorID, w.InstructorCamel),
		Level:        firstString(w.Level),
		Price:        firstFloat(0, w.Price),
		MaxSessions:  firstInt(0, w.MaxSessions, w.MaxSessionsAlt),
		Location:     parseEntityLocation(w.Location, w.Lat, w.Lng),
	}
}

// parseEntityLocation accepts a nested location object, a serialised one, or flat lat/lng fields.
// Invalid coordinates yield nil so the entity is treated as having an unknown position.
func parseEntityLocation(raw json.RawMessage, lat, lng flexFloat) *models.Location {
	if parsed := ParseRequestLocation(raw); parsed.Kind == models.RequestLocationCoordinates {
		return parsed.Location
	}
	if !lat.Set || !lng.Set {
		return nil
	}
	loc := &models.Location{Lat: lat.Value, Lng: lng.Value}
	if loc.Point().Validate() != nil {
		return nil
	}
	return loc
}

// ParseDescription resolves the instructor description union: a plain bio string, a JSON object
// serialised inside a string, or an object. Anything else is an empty description.
func ParseDescription(raw json.RawMessage) models.InstructorDescription {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return models.InstructorDescription{}
	}
	switch raw[0] {
	case '{':
		var p wireProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			return models.InstructorDescription{}
		}
		return profileDescription(p)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.InstructorDescription{}
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return models.InstructorDescription{}
		}
		if strings.HasPrefix(s, "{") {
			var p wireProfile
			if err := json.Unmarshal([]byte(s), &p); err == nil {
				return profileDescription(p)
			}
		}
		return models.InstructorDescription{Kind: models.DescriptionBio, Bio: s}
	default:
		return models.InstructorDescription{}
	}
}

func profileDescription(p wireProfile) models.InstructorDescription {
	profile := &models.InstructorProfile{
		Headline:       firstString(p.Headline, p.Title),
		Experience:     firstString(p.Experience),
		Certifications: compactStrings(p.Certifications),
		Specialties:    compactStrings(p.Specialties),
	}
	return models.InstructorDescription{
		Kind:    models.DescriptionStructured,
		Bio:     firstString(p.Bio),
		Profile: profile,
	}
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DecodeInstructors decodes the instructor directory.
func DecodeInstructors(body []byte) ([]models.Instructor, error) {
	wire, err := decodeList[wireInstructor](body, "instructors")
	if err != nil {
		return nil, err
	}
	out := make([]models.Instructor, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// DecodeCourses decodes the course directory.
func DecodeCourses(body []byte) ([]models.Course, error) {
	wire, err := decodeList[wireCourse](body, "courses")
	if err != nil {
		return nil, err
	}
	out := make([]models.Course, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}
