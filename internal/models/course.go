package models

import "time"

// CourseStatus represents the lifecycle of a scheduled course.
type CourseStatus string

// Possible course statuses. The only automatic transition is
// planned -> completed, driven by attendance recording; ongoing and
// cancelled are administrator-set.
const (
	CourseStatusPlanned   CourseStatus = "planned"
	CourseStatusOngoing   CourseStatus = "ongoing"
	CourseStatusCompleted CourseStatus = "completed"
	CourseStatusCancelled CourseStatus = "cancelled"
)

// Valid reports whether the status is a known lifecycle value.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusPlanned, CourseStatusOngoing, CourseStatusCompleted, CourseStatusCancelled:
		return true
	}
	return false
}

// Course is a scheduled session members can enroll into.
type Course struct {
	ID              string       `db:"id" json:"id"`
	Title           string       `db:"title" json:"title"`
	StartsAt        time.Time    `db:"starts_at" json:"starts_at"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	Location        string       `db:"location" json:"location"`
	Fee             int64        `db:"fee" json:"fee"`
	MaxParticipants int          `db:"max_participants" json:"max_participants"`
	InstructorID    *string      `db:"instructor_id" json:"instructor_id,omitempty"`
	Status          CourseStatus `db:"status" json:"status"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// IsEnrollmentOpen reports whether the course accepts new enrollments:
// it must still be planned and its start must lie in the future.
func (c *Course) IsEnrollmentOpen(now time.Time) bool {
	return c.Status == CourseStatusPlanned && c.StartsAt.After(now)
}

// CourseDetail enriches Course with its current enrollment count.
type CourseDetail struct {
	Course
	EnrolledCount int `db:"enrolled_count" json:"enrolled_count"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Status    CourseStatus
	From      *time.Time
	To        *time.Time
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
