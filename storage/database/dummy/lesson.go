package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/lesson"
)

type lessonRepository struct {
	db    *lessonTable
	users *userTable
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db.lesson, users: db.user}
}

func (repo *lessonRepository) queryLessons() []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(repo.db.lessons))
	for _, les := range repo.db.lessons {
		lessons = append(lessons, *les)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons
}

func (repo *lessonRepository) queryModules(lessonID int) []lesson.Module {
	mods := make([]lesson.Module, 0)
	for _, mod := range repo.db.modules {
		if mod.LessonID == lessonID {
			mods = append(mods, *mod)
		}
	}
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Order != mods[j].Order {
			return mods[i].Order < mods[j].Order
		}
		return mods[i].ID < mods[j].ID
	})
	return mods
}

func pageLessons(lessons []lesson.Lesson, paging core.Paging) []lesson.Lesson {
	if paging.Skip >= len(lessons) {
		return []lesson.Lesson{}
	}
	lessons = lessons[paging.Skip:]
	if paging.Limit < len(lessons) {
		lessons = lessons[:paging.Limit]
	}
	return lessons
}

func pageModules(mods []lesson.Module, paging core.Paging) []lesson.Module {
	if paging.Skip >= len(mods) {
		return []lesson.Module{}
	}
	mods = mods[paging.Skip:]
	if paging.Limit < len(mods) {
		mods = mods[:paging.Limit]
	}
	return mods
}

func (repo *lessonRepository) CreateLesson(_ context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.lessonPK++
	les.ID = repo.db.lessonPK
	repo.db.lessons[les.ID] = &les
	return les, nil
}

func (repo *lessonRepository) GetLessonByID(_ context.Context, id int) (lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if les, ok := repo.db.lessons[id]; ok {
		return *les, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) GetLessonDetail(_ context.Context, id int) (lesson.Detail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	les, ok := repo.db.lessons[id]
	if !ok {
		return lesson.Detail{}, lesson.ErrNotFound
	}

	detail := lesson.Detail{
		Lesson:  *les,
		Modules: repo.queryModules(id),
	}
	for _, enr := range repo.db.enrollments {
		if enr.LessonID == id {
			detail.StudentCount++
		}
	}
	if les.TeacherID != nil {
		repo.users.RLock()
		if teacher, ok := repo.users.table[*les.TeacherID]; ok {
			t := *teacher
			detail.Teacher = &t
		}
		repo.users.RUnlock()
	}
	return detail, nil
}

func (repo *lessonRepository) QueryLessons(_ context.Context, filter lesson.QueryFilter, paging core.Paging) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]lesson.Lesson, 0)
	for _, les := range repo.queryLessons() {
		if filter.Status != "" && les.Status != filter.Status {
			continue
		}
		lessons = append(lessons, les)
	}
	return pageLessons(lessons, paging), nil
}

func (repo *lessonRepository) QueryLessonsByTeacher(_ context.Context, teacherID int, paging core.Paging) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]lesson.Lesson, 0)
	for _, les := range repo.queryLessons() {
		if les.TeacherID != nil && *les.TeacherID == teacherID {
			lessons = append(lessons, les)
		}
	}
	return pageLessons(lessons, paging), nil
}

func (repo *lessonRepository) QueryLessonsByStudent(_ context.Context, studentID int, paging core.Paging) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrolled := make(map[int]bool)
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrolled[enr.LessonID] = true
		}
	}
	lessons := make([]lesson.Lesson, 0)
	for _, les := range repo.queryLessons() {
		if enrolled[les.ID] {
			lessons = append(lessons, les)
		}
	}
	return pageLessons(lessons, paging), nil
}

func (repo *lessonRepository) UpdateLesson(_ context.Context, id int, ul lesson.UpdateLesson) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	les, ok := repo.db.lessons[id]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	if ul.Title != nil {
		les.Title = *ul.Title
	}
	if ul.Description != nil {
		les.Description = *ul.Description
	}
	if ul.Status != nil {
		les.Status = *ul.Status
	}
	if ul.Content != nil {
		les.Content = *ul.Content
	}
	les.UpdatedAt = time.Now().UTC()
	return *les, nil
}

func (repo *lessonRepository) DeleteLessonByID(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return lesson.ErrNotFound
	}
	for mid, mod := range repo.db.modules {
		if mod.LessonID == id {
			delete(repo.db.modules, mid)
		}
	}
	for eid, enr := range repo.db.enrollments {
		if enr.LessonID == id {
			delete(repo.db.enrollments, eid)
		}
	}
	delete(repo.db.lessons, id)
	return nil
}

func (repo *lessonRepository) CreateModule(_ context.Context, mod lesson.Module) (lesson.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.modulePK++
	mod.ID = repo.db.modulePK
	repo.db.modules[mod.ID] = &mod
	return mod, nil
}

func (repo *lessonRepository) GetModuleByID(_ context.Context, lessonID, moduleID int) (lesson.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mod, ok := repo.db.modules[moduleID]; ok && mod.LessonID == lessonID {
		return *mod, nil
	}
	return lesson.Module{}, lesson.ErrModuleNotFound
}

func (repo *lessonRepository) QueryLessonModules(_ context.Context, lessonID int, paging core.Paging) ([]lesson.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return pageModules(repo.queryModules(lessonID), paging), nil
}

func (repo *lessonRepository) UpdateModule(_ context.Context, lessonID, moduleID int, um lesson.UpdateModule) (lesson.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mod, ok := repo.db.modules[moduleID]
	if !ok || mod.LessonID != lessonID {
		return lesson.Module{}, lesson.ErrModuleNotFound
	}
	if um.Title != nil {
		mod.Title = *um.Title
	}
	if um.Order != nil {
		mod.Order = *um.Order
	}
	if um.Content != nil {
		mod.Content = *um.Content
	}
	mod.UpdatedAt = time.Now().UTC()
	return *mod, nil
}

func (repo *lessonRepository) DeleteModuleByID(_ context.Context, lessonID, moduleID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	mod, ok := repo.db.modules[moduleID]
	if !ok || mod.LessonID != lessonID {
		return lesson.ErrModuleNotFound
	}
	delete(repo.db.modules, moduleID)
	return nil
}

func (repo *lessonRepository) UpsertEnrollment(_ context.Context, studentID, lessonID int) (lesson.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.LessonID == lessonID {
			if enr.Status != lesson.EnrollmentActive {
				enr.Status = lesson.EnrollmentActive
				enr.UpdatedAt = time.Now().UTC()
			}
			return *enr, nil
		}
	}

	now := time.Now().UTC()
	repo.db.enrollPK++
	enr := lesson.Enrollment{
		ID:        repo.db.enrollPK,
		StudentID: studentID,
		LessonID:  lessonID,
		Status:    lesson.EnrollmentActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *lessonRepository) UpdateEnrollmentStatus(_ context.Context, studentID, lessonID int, status string) (lesson.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.LessonID == lessonID {
			if enr.Status != status {
				enr.Status = status
				enr.UpdatedAt = time.Now().UTC()
			}
			return *enr, nil
		}
	}
	return lesson.Enrollment{}, lesson.ErrEnrollmentNotFound
}

func (repo *lessonRepository) IsEnrolled(_ context.Context, studentID, lessonID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.LessonID == lessonID {
			return true, nil
		}
	}
	return false, nil
}
