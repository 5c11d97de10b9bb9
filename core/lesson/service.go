package lesson

import (
	"context"
	"errors"
	"time"

	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("lesson not found")
	ErrModuleNotFound     = errors.New("module not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrForbidden          = errors.New("permission denied")
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id int) (Lesson, error)
		// GetLessonDetail joins in the teacher, the order-sorted modules and
		// the enrollment count.
		GetLessonDetail(ctx context.Context, id int) (Detail, error)
		QueryLessons(ctx context.Context, filter QueryFilter, paging core.Paging) ([]Lesson, error)
		QueryLessonsByTeacher(ctx context.Context, teacherID int, paging core.Paging) ([]Lesson, error)
		QueryLessonsByStudent(ctx context.Context, studentID int, paging core.Paging) ([]Lesson, error)
		// UpdateLesson applies only the non-nil fields of ul.
		UpdateLesson(ctx context.Context, id int, ul UpdateLesson) (Lesson, error)
		// DeleteLessonByID removes the lesson along with its modules and
		// enrollments, atomically.
		DeleteLessonByID(ctx context.Context, id int) error

		CreateModule(ctx context.Context, mod Module) (Module, error)
		// GetModuleByID only finds modules belonging to the given lesson.
		GetModuleByID(ctx context.Context, lessonID, moduleID int) (Module, error)
		QueryLessonModules(ctx context.Context, lessonID int, paging core.Paging) ([]Module, error)
		UpdateModule(ctx context.Context, lessonID, moduleID int, um UpdateModule) (Module, error)
		DeleteModuleByID(ctx context.Context, lessonID, moduleID int) error

		// UpsertEnrollment atomically creates an active enrollment or
		// reactivates the existing (student, lesson) row.
		UpsertEnrollment(ctx context.Context, studentID, lessonID int) (Enrollment, error)
		// UpdateEnrollmentStatus sets the free-text status of an existing
		// (student, lesson) enrollment.
		UpdateEnrollmentStatus(ctx context.Context, studentID, lessonID int, status string) (Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, lessonID int) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// allowed resolves the actor's enrollment when it matters, then consults
// the decision table. les must exist; absence is reported before this.
func (svc *Service) allowed(ctx context.Context, actor user.User, les Lesson, action Action) error {
	var enrolled bool
	if actor.IsStudent() && action == ActionRead && les.Status != StatusPublished {
		var err error
		if enrolled, err = svc.repo.IsEnrolled(ctx, actor.ID, les.ID); err != nil {
			return err
		}
	}
	if !Allowed(actor.Role, actor.ID, les.TeacherID, les.Status, enrolled, action) {
		return ErrForbidden
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nl NewLesson) (Lesson, error) {
	if !Allowed(actor.Role, actor.ID, nil, "", false, ActionCreate) {
		return Lesson{}, ErrForbidden
	}
	now := time.Now().UTC()
	teacherID := actor.ID
	les := Lesson{
		Title:       nl.Title,
		Description: nl.Description,
		Status:      nl.Status,
		Content:     nl.Content,
		TeacherID:   &teacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *Service) Get(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

// GetDetail returns the lesson with teacher, modules and student count,
// applying read access rules.
func (svc *Service) GetDetail(ctx context.Context, actor user.User, id int) (Detail, error) {
	les, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if err = svc.allowed(ctx, actor, les, ActionRead); err != nil {
		return Detail{}, err
	}
	return svc.repo.GetLessonDetail(ctx, id)
}

// Query lists lessons. Students only ever see published lessons here,
// whatever filter they ask for. Teachers and admins get the full catalog;
// opening a lesson is still subject to the per-lesson read rules.
func (svc *Service) Query(ctx context.Context, actor user.User, filter QueryFilter, paging core.Paging) ([]Lesson, error) {
	if actor.IsStudent() {
		filter.Status = StatusPublished
	}
	paging.Clean()
	return svc.repo.QueryLessons(ctx, filter, paging)
}

// QueryOwn lists the lessons the actor teaches.
func (svc *Service) QueryOwn(ctx context.Context, actor user.User, paging core.Paging) ([]Lesson, error) {
	paging.Clean()
	return svc.repo.QueryLessonsByTeacher(ctx, actor.ID, paging)
}

// QueryEnrolled lists the lessons the actor is enrolled in.
func (svc *Service) QueryEnrolled(ctx context.Context, actor user.User, paging core.Paging) ([]Lesson, error) {
	paging.Clean()
	return svc.repo.QueryLessonsByStudent(ctx, actor.ID, paging)
}

// Update applies the non-nil fields of ul to the lesson.
func (svc *Service) Update(ctx context.Context, actor user.User, id int, ul UpdateLesson) (Lesson, error) {
	les, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if err = svc.allowed(ctx, actor, les, ActionUpdate); err != nil {
		return Lesson{}, err
	}
	if ul.IsEmpty() {
		return les, nil
	}
	return svc.repo.UpdateLesson(ctx, id, ul)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	les, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.allowed(ctx, actor, les, ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteLessonByID(ctx, id)
}

// Modules; access follows the parent lesson.

func (svc *Service) CreateModule(ctx context.Context, actor user.User, lessonID int, nm NewModule) (Module, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Module{}, err
	}
	if err = svc.allowed(ctx, actor, les, ActionUpdate); err != nil {
		return Module{}, err
	}
	now := time.Now().UTC()
	mod := Module{
		Title:     nm.Title,
		Order:     nm.Order,
		Content:   nm.Content,
		LessonID:  lessonID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateModule(ctx, mod)
}

func (svc *Service) GetModule(ctx context.Context, actor user.User, lessonID, moduleID int) (Module, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Module{}, err
	}
	if err = svc.allowed(ctx, actor, les, ActionRead); err != nil {
		return Module{}, err
	}
	return svc.repo.GetModuleByID(ctx, lessonID, moduleID)
}

func (svc *Service) QueryModules(ctx context.Context, actor user.User, lessonID int, paging core.Paging) ([]Module, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err = svc.allowed(ctx, actor, les, ActionRead); err != nil {
		return nil, err
	}
	paging.Clean()
	return svc.repo.QueryLessonModules(ctx, lessonID, paging)
}

func (svc *Service) UpdateModule(ctx context.Context, actor user.User, lessonID, moduleID int, um UpdateModule) (Module, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Module{}, err
	}
	if err = svc.allowed(ctx, actor, les, ActionUpdate); err != nil {
		return Module{}, err
	}
	if um.IsEmpty() {
		return svc.repo.GetModuleByID(ctx, lessonID, moduleID)
	}
	return svc.repo.UpdateModule(ctx, lessonID, moduleID, um)
}

func (svc *Service) DeleteModule(ctx context.Context, actor user.User, lessonID, moduleID int) error {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return err
	}
	if err = svc.allowed(ctx, actor, les, ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteModuleByID(ctx, lessonID, moduleID)
}

// Enroll registers the actor in the lesson. Enrolling twice is idempotent;
// re-enrolling after a non-active status flips the row back to active.
func (svc *Service) Enroll(ctx context.Context, actor user.User, lessonID int) (Enrollment, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Enrollment{}, err
	}
	if !Allowed(actor.Role, actor.ID, les.TeacherID, les.Status, false, ActionEnroll) {
		return Enrollment{}, ErrForbidden
	}
	return svc.repo.UpsertEnrollment(ctx, actor.ID, lessonID)
}

// UpdateEnrollmentStatus sets a student's enrollment status on a lesson,
// eg. "completed" or "dropped". Only the lesson's teacher or an admin may
// do this; a later re-enroll flips the row back to active.
func (svc *Service) UpdateEnrollmentStatus(ctx context.Context, actor user.User, lessonID, studentID int, status string) (Enrollment, error) {
	les, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = svc.allowed(ctx, actor, les, ActionUpdate); err != nil {
		return Enrollment{}, err
	}
	status = core.CleanString(status)
	if status == "" {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "this field is required"})
	}
	return svc.repo.UpdateEnrollmentStatus(ctx, studentID, lessonID, status)
}
