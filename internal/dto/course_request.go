package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/noah-isme/swimcoach/internal/models"
)

type wireCourseRef struct {
	ID         flexString `json:"course_id"`
	IDCamel    flexString `json:"courseId"`
	IDPlain    flexString `json:"id"`
	Title      flexString `json:"title"`
	Name       flexString `json:"name"`
	Instructor flexString `json:"instructor_id"`
	InstrCamel flexString `json:"instructorId"`
}

type wireUserRef struct {
	Name     flexString `json:"name"`
	FullName flexString `json:"full_name"`
	Display  flexString `json:"displayName"`
}

type wireCourseRequest struct {
	ID             flexString      `json:"request_id"`
	IDCamel        flexString      `json:"requestId"`
	IDPlain        flexString      `json:"id"`
	StudentID      flexString      `json:"student_id"`
	StudentIDCamel flexString      `json:"studentId"`
	CourseID       flexString      `json:"course_id"`
	CourseIDCamel  flexString      `json:"courseId"`
	Status         flexString      `json:"status"`
	RequestDate    flexTime        `json:"request_date"`
	RequestDateAlt flexTime        `json:"requestDate"`
	CreatedAt      flexTime        `json:"created_at"`
	DayOfWeek      flexString      `json:"requested_day_of_week"`
	DayOfWeekCamel flexString      `json:"requestedDayOfWeek"`
	TimeSlot       flexString      `json:"requested_time_slot"`
	TimeSlotCamel  flexString      `json:"requestedTimeSlot"`
	Location       json.RawMessage `json:"request_location"`
	LocationCamel  json.RawMessage `json:"requestLocation"`
	Price          flexFloat       `json:"request_price"`
	PriceCamel     flexFloat       `json:"requestPrice"`
	Reason         flexString      `json:"rejection_reason"`
	ReasonCamel    flexString      `json:"rejectionReason"`
	Course         *wireCourseRef  `json:"Course"`
	CourseLower    *wireCourseRef  `json:"course"`
	Student        *wireUserRef    `json:"Student"`
	StudentLower   *wireUserRef    `json:"student"`
}

// normalize maps a wire record to the canonical model.
// Fallbacks: a missing status becomes pending and an unrecognised one unknown, missing price becomes 0, missing date stays zero.
// A rejection reason is only kept for rejected requests.
func (w wireCourseRequest) normalize() models.CourseRequest {
	course := w.Course
	if course == nil {
		course = w.CourseLower
	}
	student := w.Student
	if student == nil {
		student = w.StudentLower
	}

	req := models.CourseRequest{
		ID:                 firstString(w.ID, w.IDCamel, w.IDPlain),
		StudentID:          firstString(w.StudentID, w.StudentIDCamel),
		CourseID:           firstString(w.CourseID, w.CourseIDCamel),
		Status:             normalizeRequestStatus(firstString(w.Status)),
		RequestedDayOfWeek: firstString(w.DayOfWeek, w.DayOfWeekCamel),
		RequestedTimeSlot:  firstString(w.TimeSlot, w.TimeSlotCamel),
		Price:              firstFloat(0, w.Price, w.PriceCamel),
	}
	if t, ok := firstTime(w.RequestDate, w.RequestDateAlt, w.CreatedAt); ok {
		req.RequestDate = t
	}
	rawLoc := w.Location
	if len(bytes.TrimSpace(rawLoc)) == 0 || string(bytes.TrimSpace(rawLoc)) == "null" {
		rawLoc = w.LocationCamel
	}
	req.Location = ParseRequestLocation(rawLoc)

	if course != nil {
		if req.CourseID == "" {
			req.CourseID = firstString(course.ID, course.IDCamel, course.IDPlain)
		}
		req.CourseTitle = firstString(course.Title, course.Name)
	}
	if student != nil {
		req.StudentName = firstString(student.Name, student.FullName, student.Display)
	}
	if req.Status == models.CourseRequestRejected {
		reason := firstString(w.Reason, w.ReasonCamel)
		if reason == "" {
			reason = "no reason given"
		}
		req.RejectionReason = &reason
	}
	return req
}

func normalizeRequestStatus(raw string) models.CourseRequestStatus {
	status := models.CourseRequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case "canceled":
		return models.CourseRequestCancelled
	case "accepted":
		return models.CourseRequestApproved
	}
	switch {
	case status == "":
		return models.CourseRequestPending
	case !status.Valid():
		return models.CourseRequestUnknown
	}
	return status
}

// DecodeCourseRequests decodes a list response of course requests.
func DecodeCourseRequests(body []byte) ([]models.CourseRequest, error) {
	wire, err := decodeList[wireCourseRequest](body, "requests", "courseRequests")
	if err != nil {
		return nil, err
	}
	out := make([]models.CourseRequest, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// DecodeCourseRequest decodes a single course request response.
func DecodeCourseRequest(body []byte) (models.CourseRequest, error) {
	w, err := decodeOne[wireCourseRequest](body, "request", "courseRequest")
	if err != nil {
		return models.CourseRequest{}, err
	}
	return w.normalize(), nil
}

type wireLocation struct {
	Lat       flexFloat  `json:"lat"`
	Latitude  flexFloat  `json:"latitude"`
	Lng       flexFloat  `json:"lng"`
	Lon       flexFloat  `json:"lon"`
	Longitude flexFloat  `json:"longitude"`
	Address   flexString `json:"address"`
}

func (w wireLocation) normalize() (*models.Location, bool) {
	lat := firstFloat(0, w.Lat, w.Latitude)
	lng := firstFloat(0, w.Lng, w.Lon, w.Longitude)
	hasLat := w.Lat.Set || w.Latitude.Set
	hasLng := w.Lng.Set || w.Lon.Set || w.Longitude.Set
	if !hasLat || !hasLng {
		return nil, false
	}
	loc := &models.Location{Lat: lat, Lng: lng, Address: firstString(w.Address)}
	if loc.Point().Validate() != nil {
		return nil, false
	}
	return loc, true
}

// ParseRequestLocation interprets a request location that may be free text, a "lat,lng" string,
// a JSON-serialised object inside a string, or an object. Anything unusable becomes free text or none.
func ParseRequestLocation(raw json.RawMessage) models.RequestLocation {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return models.RequestLocation{}
	}
	if raw[0] == '{' {
		var w wireLocation
		if err := json.Unmarshal(raw, &w); err == nil {
			if loc, ok := w.normalize(); ok {
				return models.RequestLocation{Kind: models.RequestLocationCoordinates, Location: loc}
			}
			if addr := firstString(w.Address); addr != "" {
				return models.RequestLocation{Kind: models.RequestLocationText, Text: addr}
			}
		}
		return models.RequestLocation{}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return models.RequestLocation{}
	}
	return parseLocationText(text)
}

func parseLocationText(text string) models.RequestLocation {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.RequestLocation{}
	}
	if strings.HasPrefix(text, "{") {
		if parsed := ParseRequestLocation(json.RawMessage(text)); parsed.Kind != models.RequestLocationNone {
			return parsed
		}
	}
	if parts := strings.Split(text, ","); len(parts) == 2 {
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat == nil && errLng == nil {
			loc := &models.Location{Lat: lat, Lng: lng}
			if loc.Point().Validate() == nil {
				return models.RequestLocation{Kind: models.RequestLocationCoordinates, Location: loc}
			}
		}
	}
	return models.RequestLocation{Kind: models.RequestLocationText, Text: text}
}

// EncodeRequestLocation serialises a request location the way the backend stores it.
func EncodeRequestLocation(loc models.RequestLocation) string {
	switch loc.Kind {
	case models.RequestLocationCoordinates:
		if loc.Location == nil {
			return ""
		}
		raw, _ := json.Marshal(loc.Location)
		return string(raw)
	case models.RequestLocationText:
		return loc.Text
	default:
		return ""
	}
}
