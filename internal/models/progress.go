package models

import "time"

// ProgressMilestone is a named checkpoint on an enrollment.
type ProgressMilestone struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Progress    int        `json:"progress"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// SkillAssessment is a named skill with a 0-100 progress value.
type SkillAssessment struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Progress    int        `json:"progress"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// ClampProgress bounds a progress value to [0, 100].
func ClampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
