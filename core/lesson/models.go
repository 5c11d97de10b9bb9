package lesson

import (
	"time"

	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/user"
)

// Statuses. Transitions are unconstrained; a lesson may move between any
// two statuses.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// EnrollmentActive is the status an enrollment (re)starts in. Other values
// ("completed", "dropped", ...) are free text set by teachers/admins.
const EnrollmentActive = "active"

type Lesson struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Content     string    `json:"content"`
	TeacherID   *int      `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Module is a section of a Lesson. It has no lifecycle of its own; it is
// created, read and deleted through its parent lesson.
type Module struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"` // display sort, not unique
	Content   string    `json:"content"`
	LessonID  int       `json:"lesson_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Enrollment links a student to a lesson. The (StudentID, LessonID) pair is
// unique; re-enrolling reactivates the existing row.
type Enrollment struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	LessonID  int       `json:"lesson_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Detail is a Lesson with its teacher, ordered modules and enrollment count.
type Detail struct {
	Lesson
	Teacher      *user.User `json:"teacher"`
	Modules      []Module   `json:"modules"`
	StudentCount int        `json:"student_count"`
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Status      Status `json:"status" validate:"omitempty,oneof=draft published archived"`
	Content     string `json:"content"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	if nl.Status == "" {
		nl.Status = StatusDraft
	}
	return core.Validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an
// existing Lesson. Nil fields are preserved.
type UpdateLesson struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *Status `json:"status" validate:"omitempty,oneof=draft published archived"`
	Content     *string `json:"content"`
}

func (ul *UpdateLesson) Validate() error {
	if ul.Title != nil {
		title := core.CleanString(*ul.Title)
		ul.Title = &title
	}
	return core.Validate.Struct(ul)
}

func (ul *UpdateLesson) IsEmpty() bool {
	return ul.Title == nil && ul.Description == nil && ul.Status == nil && ul.Content == nil
}

// NewModule contains information needed to create a new Module.
type NewModule struct {
	Title   string `json:"title" validate:"required"`
	Order   int    `json:"order"`
	Content string `json:"content"`
}

func (nm *NewModule) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	return core.Validate.Struct(nm)
}

// UpdateModule defines what information may be provided to modify an
// existing Module. Nil fields are preserved.
type UpdateModule struct {
	Title   *string `json:"title"`
	Order   *int    `json:"order"`
	Content *string `json:"content"`
}

func (um *UpdateModule) Validate() error {
	if um.Title != nil {
		title := core.CleanString(*um.Title)
		um.Title = &title
	}
	return core.Validate.Struct(um)
}

func (um *UpdateModule) IsEmpty() bool {
	return um.Title == nil && um.Order == nil && um.Content == nil
}

// QueryFilter restricts lesson list queries.
type QueryFilter struct {
	Status Status `query:"status"`
}

func (qf *QueryFilter) Validate() error {
	switch qf.Status {
	case "", StatusDraft, StatusPublished, StatusArchived:
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
}
