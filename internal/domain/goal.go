package domain

import (
	"math"
	"time"
)

// Contribution frequencies accepted on a goal.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyOneTime = "one-time"
)

// Frequencies lists the valid contribution frequencies.
var Frequencies = []string{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyOneTime}

// ValidFrequency reports whether f is an accepted contribution frequency.
func ValidFrequency(f string) bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Goal is a savings goal row (table: goals).
type Goal struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	TargetAmount    float64    `json:"target_amount"`
	SavedAmount     float64    `json:"saved_amount"`
	Frequency       string     `json:"frequency,omitempty"`
	DueDate         string     `json:"due_date,omitempty"` // YYYY-MM-DD
	RegularAmount   *float64   `json:"regular_amount,omitempty"`
	LinkedAccountID string     `json:"linked_account_id,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// GoalInput is the payload for creating a goal. SavedAmount always starts at zero.
type GoalInput struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	TargetAmount    float64  `json:"target_amount"`
	Frequency       string   `json:"frequency,omitempty"`
	DueDate         string   `json:"due_date,omitempty"`
	RegularAmount   *float64 `json:"regular_amount,omitempty"`
	LinkedAccountID string   `json:"linked_account_id,omitempty"`
}

// GoalUpdate carries a partial goal mutation. Nil fields are untouched.
type GoalUpdate struct {
	Name            *string  `json:"name,omitempty"`
	Description     *string  `json:"description,omitempty"`
	TargetAmount    *float64 `json:"target_amount,omitempty"`
	SavedAmount     *float64 `json:"saved_amount,omitempty"`
	Frequency       *string  `json:"frequency,omitempty"`
	DueDate         *string  `json:"due_date,omitempty"`
	RegularAmount   *float64 `json:"regular_amount,omitempty"`
	LinkedAccountID *string  `json:"linked_account_id,omitempty"`
}

// Apply merges the non-nil fields of the update into g.
func (u GoalUpdate) Apply(g *Goal) {
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.Description != nil {
		g.Description = *u.Description
	}
	if u.TargetAmount != nil {
		g.TargetAmount = *u.TargetAmount
	}
	if u.SavedAmount != nil {
		g.SavedAmount = *u.SavedAmount
	}
	if u.Frequency != nil {
		g.Frequency = *u.Frequency
	}
	if u.DueDate != nil {
		g.DueDate = *u.DueDate
	}
	if u.RegularAmount != nil {
		g.RegularAmount = u.RegularAmount
	}
	if u.LinkedAccountID != nil {
		g.LinkedAccountID = *u.LinkedAccountID
	}
}

// GoalWithProgress is a goal plus its derived fields. No goal leaves the
// state layer without them.
type GoalWithProgress struct {
	Goal
	ProgressPercentage float64 `json:"progress_percentage"`
	IsComplete         bool    `json:"is_complete"`
	DaysRemaining      *int    `json:"days_remaining,omitempty"`
}

// ComputeGoalProgress derives progress for a goal at the given instant.
// Progress is clamped to [0,100]; a zero target yields 0%, not an error.
// DaysRemaining is nil when the goal has no due date, and never negative.
func ComputeGoalProgress(g Goal, now time.Time) GoalWithProgress {
	progress := 0.0
	if g.TargetAmount > 0 {
		progress = g.SavedAmount / g.TargetAmount * 100
		progress = math.Max(0, math.Min(100, progress))
	}

	gp := GoalWithProgress{
		Goal:               g,
		ProgressPercentage: progress,
		IsComplete:         progress >= 100,
	}

	if g.DueDate != "" {
		if due, err := time.Parse("2006-01-02", g.DueDate); err == nil {
			d := DaysUntil(due, now)
			gp.DaysRemaining = &d
		}
	}

	return gp
}

// DaysUntil returns the number of whole days from now to due, never negative.
// A due date of today or in the past yields 0.
func DaysUntil(due, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	days := int(dueDay.Sub(today).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
