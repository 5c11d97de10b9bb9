package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/lesson"
)

type lessonRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	Content     string    `db:"content"`
	TeacherID   *int      `db:"teacher_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r lessonRow) lesson() lesson.Lesson {
	return lesson.Lesson{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      lesson.Status(r.Status),
		Content:     r.Content,
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type moduleRow struct {
	ID        int       `db:"id"`
	Title     string    `db:"title"`
	Order     int       `db:"order"`
	Content   string    `db:"content"`
	LessonID  int       `db:"lesson_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r moduleRow) module() lesson.Module {
	return lesson.Module{
		ID:        r.ID,
		Title:     r.Title,
		Order:     r.Order,
		Content:   r.Content,
		LessonID:  r.LessonID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type enrollmentRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	LessonID  int       `db:"lesson_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r enrollmentRow) enrollment() lesson.Enrollment {
	return lesson.Enrollment{
		ID:        r.ID,
		StudentID: r.StudentID,
		LessonID:  r.LessonID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const (
	lessonColumns     = "id, title, description, status, content, teacher_id, created_at, updated_at"
	moduleColumns     = `id, title, "order", content, lesson_id, created_at, updated_at`
	enrollmentColumns = "id, student_id, lesson_id, status, created_at, updated_at"
)

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo lessonRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	var row lessonRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO lessons (title, description, status, content, teacher_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+lessonColumns,
		les.Title, les.Description, les.Status, les.Content, les.TeacherID, les.CreatedAt, les.UpdatedAt,
	)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return row.lesson(), nil
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id int) (lesson.Lesson, error) {
	var row lessonRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+lessonColumns+" FROM lessons WHERE id = $1", id)
	if err != nil {
		return lesson.Lesson{}, repo.trapNoRowsErr(err, lesson.ErrNotFound, "finding lesson by ID")
	}
	return row.lesson(), nil
}

func (repo lessonRepository) GetLessonDetail(ctx context.Context, id int) (lesson.Detail, error) {
	les, err := repo.GetLessonByID(ctx, id)
	if err != nil {
		return lesson.Detail{}, err
	}
	detail := lesson.Detail{Lesson: les, Modules: []lesson.Module{}}

	if les.TeacherID != nil {
		var row userRow
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", *les.TeacherID)
		if err != nil && errors.Cause(err) != sql.ErrNoRows {
			return lesson.Detail{}, errors.Wrap(err, "finding lesson teacher")
		}
		if err == nil {
			teacher := row.user()
			detail.Teacher = &teacher
		}
	}

	var modRows []moduleRow
	err = repo.db.SelectContext(ctx, &modRows,
		`SELECT `+moduleColumns+` FROM modules WHERE lesson_id = $1 ORDER BY "order", id`, id)
	if err != nil {
		return lesson.Detail{}, errors.Wrap(err, "querying lesson modules")
	}
	for _, row := range modRows {
		detail.Modules = append(detail.Modules, row.module())
	}

	err = repo.db.GetContext(ctx, &detail.StudentCount,
		"SELECT count(*) FROM enrollments WHERE lesson_id = $1", id)
	if err != nil {
		return lesson.Detail{}, errors.Wrap(err, "counting lesson students")
	}
	return detail, nil
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter lesson.QueryFilter, paging core.Paging) ([]lesson.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons"
	args := make([]interface{}, 0, 3)
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY id OFFSET ? LIMIT ?"
	args = append(args, paging.Skip, paging.Limit)

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return repo.lessons(rows), nil
}

func (repo lessonRepository) QueryLessonsByTeacher(ctx context.Context, teacherID int, paging core.Paging) ([]lesson.Lesson, error) {
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+lessonColumns+" FROM lessons WHERE teacher_id = $1 ORDER BY id OFFSET $2 LIMIT $3",
		teacherID, paging.Skip, paging.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher lessons")
	}
	return repo.lessons(rows), nil
}

func (repo lessonRepository) QueryLessonsByStudent(ctx context.Context, studentID int, paging core.Paging) ([]lesson.Lesson, error) {
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT l.id, l.title, l.description, l.status, l.content, l.teacher_id, l.created_at, l.updated_at
		 FROM lessons l
		 JOIN enrollments e ON l.id = e.lesson_id
		 WHERE e.student_id = $1
		 ORDER BY l.id OFFSET $2 LIMIT $3`,
		studentID, paging.Skip, paging.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled lessons")
	}
	return repo.lessons(rows), nil
}

func (repo lessonRepository) lessons(rows []lessonRow) []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.lesson())
	}
	return lessons
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, id int, ul lesson.UpdateLesson) (lesson.Lesson, error) {
	sets := []string{"updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         id,
		"updated_at": time.Now().UTC(),
	}
	if ul.Title != nil {
		sets = append(sets, "title = :title")
		params["title"] = *ul.Title
	}
	if ul.Description != nil {
		sets = append(sets, "description = :description")
		params["description"] = *ul.Description
	}
	if ul.Status != nil {
		sets = append(sets, "status = :status")
		params["status"] = *ul.Status
	}
	if ul.Content != nil {
		sets = append(sets, "content = :content")
		params["content"] = *ul.Content
	}

	query, args, err := repo.db.BindNamed(
		"UPDATE lessons SET "+strings.Join(sets, ", ")+" WHERE id = :id RETURNING "+lessonColumns,
		params,
	)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "binding lesson update")
	}

	var row lessonRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return lesson.Lesson{}, repo.trapNoRowsErr(err, lesson.ErrNotFound, "updating lesson")
	}
	return row.lesson(), nil
}

// DeleteLessonByID removes the lesson and its modules and enrollments in
// one transaction. The cascade FKs would handle the children anyway; doing
// it explicitly keeps the delete observable and storage-agnostic.
func (repo lessonRepository) DeleteLessonByID(ctx context.Context, id int) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE lesson_id = $1", id); err != nil {
			return errors.Wrap(err, "deleting lesson enrollments")
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM modules WHERE lesson_id = $1", id); err != nil {
			return errors.Wrap(err, "deleting lesson modules")
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
		if err != nil {
			return errors.Wrap(err, "deleting lesson")
		}
		if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
			return lesson.ErrNotFound
		}
		return nil
	})
}

func (repo lessonRepository) CreateModule(ctx context.Context, mod lesson.Module) (lesson.Module, error) {
	var row moduleRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO modules (title, "order", content, lesson_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+moduleColumns,
		mod.Title, mod.Order, mod.Content, mod.LessonID, mod.CreatedAt, mod.UpdatedAt,
	)
	if err != nil {
		return lesson.Module{}, errors.Wrap(err, "inserting module")
	}
	return row.module(), nil
}

func (repo lessonRepository) GetModuleByID(ctx context.Context, lessonID, moduleID int) (lesson.Module, error) {
	var row moduleRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+moduleColumns+" FROM modules WHERE id = $1 AND lesson_id = $2", moduleID, lessonID)
	if err != nil {
		return lesson.Module{}, repo.trapNoRowsErr(err, lesson.ErrModuleNotFound, "finding module by ID")
	}
	return row.module(), nil
}

func (repo lessonRepository) QueryLessonModules(ctx context.Context, lessonID int, paging core.Paging) ([]lesson.Module, error) {
	var rows []moduleRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+moduleColumns+` FROM modules WHERE lesson_id = $1 ORDER BY "order", id OFFSET $2 LIMIT $3`,
		lessonID, paging.Skip, paging.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying lesson modules")
	}
	modules := make([]lesson.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, row.module())
	}
	return modules, nil
}

func (repo lessonRepository) UpdateModule(ctx context.Context, lessonID, moduleID int, um lesson.UpdateModule) (lesson.Module, error) {
	sets := []string{"updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         moduleID,
		"lesson_id":  lessonID,
		"updated_at": time.Now().UTC(),
	}
	if um.Title != nil {
		sets = append(sets, "title = :title")
		params["title"] = *um.Title
	}
	if um.Order != nil {
		sets = append(sets, `"order" = :order`)
		params["order"] = *um.Order
	}
	if um.Content != nil {
		sets = append(sets, "content = :content")
		params["content"] = *um.Content
	}

	query, args, err := repo.db.BindNamed(
		"UPDATE modules SET "+strings.Join(sets, ", ")+
			" WHERE id = :id AND lesson_id = :lesson_id RETURNING "+moduleColumns,
		params,
	)
	if err != nil {
		return lesson.Module{}, errors.Wrap(err, "binding module update")
	}

	var row moduleRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return lesson.Module{}, repo.trapNoRowsErr(err, lesson.ErrModuleNotFound, "updating module")
	}
	return row.module(), nil
}

func (repo lessonRepository) DeleteModuleByID(ctx context.Context, lessonID, moduleID int) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM modules WHERE id = $1 AND lesson_id = $2", moduleID, lessonID)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return lesson.ErrModuleNotFound
	}
	return nil
}

// UpsertEnrollment resolves concurrent enrolls for the same (student,
// lesson) pair at the constraint level: a single conditional upsert, never
// read-then-write. Re-enrolling an active row leaves it untouched.
func (repo lessonRepository) UpsertEnrollment(ctx context.Context, studentID, lessonID int) (lesson.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO enrollments (student_id, lesson_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT ON CONSTRAINT unique_enrollment DO UPDATE
		 SET status = EXCLUDED.status,
		     updated_at = CASE WHEN enrollments.status <> EXCLUDED.status THEN now() ELSE enrollments.updated_at END
		 RETURNING `+enrollmentColumns,
		studentID, lessonID, lesson.EnrollmentActive,
	)
	if err != nil {
		return lesson.Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}
	return row.enrollment(), nil
}

func (repo lessonRepository) UpdateEnrollmentStatus(ctx context.Context, studentID, lessonID int, status string) (lesson.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE enrollments
		 SET status = $3,
		     updated_at = CASE WHEN status <> $3 THEN now() ELSE updated_at END
		 WHERE student_id = $1 AND lesson_id = $2
		 RETURNING `+enrollmentColumns,
		studentID, lessonID, status,
	)
	if err != nil {
		return lesson.Enrollment{}, repo.trapNoRowsErr(err, lesson.ErrEnrollmentNotFound, "updating enrollment status")
	}
	return row.enrollment(), nil
}

func (repo lessonRepository) IsEnrolled(ctx context.Context, studentID, lessonID int) (bool, error) {
	var enrolled bool
	err := repo.db.GetContext(ctx, &enrolled,
		"SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND lesson_id = $2)",
		studentID, lessonID,
	)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}
