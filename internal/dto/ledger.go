package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/swimcoach/internal/models"
)

type wireAttendance struct {
	ID                flexString `json:"attendance_id"`
	IDCamel           flexString `json:"attendanceId"`
	IDPlain           flexString `json:"id"`
	EnrollmentID      flexString `json:"enrollment_id"`
	EnrollmentIDCamel flexString `json:"enrollmentId"`
	Session           flexInt    `json:"session_number"`
	SessionCamel      flexInt    `json:"sessionNumber"`
	Status            flexString `json:"status"`
	Reason            flexString `json:"reason_for_absence"`
	ReasonCamel       flexString `json:"reasonForAbsence"`
	Date              flexTime   `json:"date_attendance"`
	DateCamel         flexTime   `json:"dateAttendance"`
}

// normalize maps a wire attendance record. Unknown status falls back to PRESENT only when no
// reason is recorded, otherwise ABSENT; a missing session number becomes 0 (invalid, kept visible).
func (w wireAttendance) normalize() models.AttendanceRecord {
	rec := models.AttendanceRecord{
		ID:               firstString(w.ID, w.IDCamel, w.IDPlain),
		EnrollmentID:     firstString(w.EnrollmentID, w.EnrollmentIDCamel),
		SessionNumber:    firstInt(0, w.Session, w.SessionCamel),
		ReasonForAbsence: firstString(w.Reason, w.ReasonCamel),
	}
	status := models.AttendanceStatus(strings.ToUpper(firstString(w.Status)))
	if !status.Valid() {
		status = models.AttendancePresent
		if rec.ReasonForAbsence != "" {
			status = models.AttendanceAbsent
		}
	}
	rec.Status = status
	if t, ok := firstTime(w.Date, w.DateCamel); ok {
		rec.DateAttendance = t
	}
	return rec
}

type wireSessionProgress struct {
	ID                flexString `json:"session_progress_id"`
	IDCamel           flexString `json:"sessionProgressId"`
	IDPlain           flexString `json:"id"`
	EnrollmentID      flexString `json:"enrollment_id"`
	EnrollmentIDCamel flexString `json:"enrollmentId"`
	Session           flexInt    `json:"session_number"`
	SessionCamel      flexInt    `json:"sessionNumber"`
	Topic             flexString `json:"topic_covered"`
	TopicCamel        flexString `json:"topicCovered"`
	Notes             flexString `json:"performance_notes"`
	NotesCamel        flexString `json:"performanceNotes"`
	Date              flexTime   `json:"date_session"`
	DateCamel         flexTime   `json:"dateSession"`
}

func (w wireSessionProgress) normalize() models.SessionProgress {
	p := models.SessionProgress{
		ID:               firstString(w.ID, w.IDCamel, w.IDPlain),
		EnrollmentID:     firstString(w.EnrollmentID, w.EnrollmentIDCamel),
		SessionNumber:    firstInt(0, w.Session, w.SessionCamel),
		TopicCovered:     firstString(w.Topic, w.TopicCamel),
		PerformanceNotes: firstString(w.Notes, w.NotesCamel),
	}
	if t, ok := firstTime(w.Date, w.DateCamel); ok {
		p.DateSession = t
	}
	return p
}

type wireProgressItem struct {
	ID          flexString `json:"id"`
	Name        flexString `json:"name"`
	Title       flexString `json:"title"`
	Skill       flexString `json:"skill"`
	Progress    flexInt    `json:"progress"`
	Percentage  flexInt    `json:"percentage"`
	LastUpdated flexTime   `json:"lastUpdated"`
	UpdatedAt   flexTime   `json:"updated_at"`
}

func (w wireProgressItem) fields() (string, string, int, *time.Time) {
	var updated *time.Time
	if t, ok := firstTime(w.LastUpdated, w.UpdatedAt); ok {
		updated = &t
	}
	name := firstString(w.Name, w.Title, w.Skill)
	return firstString(w.ID), name, models.ClampProgress(firstInt(0, w.Progress, w.Percentage)), updated
}

// DecodeAttendance decodes a list of attendance records.
func DecodeAttendance(body []byte) ([]models.AttendanceRecord, error) {
	wire, err := decodeList[wireAttendance](body, "attendances", "attendance")
	if err != nil {
		return nil, err
	}
	out := make([]models.AttendanceRecord, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// DecodeAttendanceRecord decodes one attendance record.
func DecodeAttendanceRecord(body []byte) (models.AttendanceRecord, error) {
	w, err := decodeOne[wireAttendance](body, "attendance")
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	return w.normalize(), nil
}

// DecodeSessionProgress decodes a list of session progress entries.
func DecodeSessionProgress(body []byte) ([]models.SessionProgress, error) {
	wire, err := decodeList[wireSessionProgress](body, "sessionProgress", "session_progress", "progress")
	if err != nil {
		return nil, err
	}
	out := make([]models.SessionProgress, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// DecodeSessionProgressEntry decodes one session progress entry.
func DecodeSessionProgressEntry(body []byte) (models.SessionProgress, error) {
	w, err := decodeOne[wireSessionProgress](body, "sessionProgress")
	if err != nil {
		return models.SessionProgress{}, err
	}
	return w.normalize(), nil
}

// DecodeMilestones decodes milestone progress; values are clamped to [0, 100].
func DecodeMilestones(body []byte) ([]models.ProgressMilestone, error) {
	wire, err := decodeList[wireProgressItem](body, "milestones")
	if err != nil {
		return nil, err
	}
	out := make([]models.ProgressMilestone, 0, len(wire))
	for _, w := range wire {
		id, name, progress, updated := w.fields()
		out = append(out, models.ProgressMilestone{ID: id, Name: name, Progress: progress, LastUpdated: updated})
	}
	return out, nil
}

// DecodeSkills decodes skill assessments; values are clamped to [0, 100].
func DecodeSkills(body []byte) ([]models.SkillAssessment, error) {
	wire, err := decodeList[wireProgressItem](body, "skills")
	if err != nil {
		return nil, err
	}
	out := make([]models.SkillAssessment, 0, len(wire))
	for _, w := range wire {
		id, name, progress, updated := w.fields()
		out = append(out, models.SkillAssessment{ID: id, Name: name, Progress: progress, LastUpdated: updated})
	}
	return out, nil
}
