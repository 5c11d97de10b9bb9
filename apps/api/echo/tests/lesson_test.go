package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/edufi/backend/core/lesson"
	"github.com/edufi/backend/core/user"
)

func Test_lessonApi_query(t *testing.T) {
	env := setup(t)

	teacher := env.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher, "", true)
	student := env.createUser(t, "Student", "student@test.cd", user.RoleStudent, "", true)
	admin := env.createUser(t, "Admin", "admin@test.cd", user.RoleAdmin, "", true)

	draft := env.createLesson(t, teacher, "Draft", lesson.StatusDraft)
	pub := env.createLesson(t, teacher, "Published", lesson.StatusPublished)
	archived := env.createLesson(t, teacher, "Archived", lesson.StatusArchived)

	tests := []httpTest{
		{name: "auth required", path: "/v1/lessons", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student sees published only", path: "/v1/lessons", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, pub)},
		{name: "student filter is overridden", path: "/v1/lessons?status=draft", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, pub)},
		{name: "admin sees all", path: "/v1/lessons", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, draft, pub, archived)},
		{name: "admin filters drafts", path: "/v1/lessons?status=draft", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, draft)},
		{name: "teacher sees all in listing", path: "/v1/lessons", token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallList(t, draft, pub, archived)},
		{
			name: "invalid status", path: "/v1/lessons?status=lol", token: getToken(t, admin),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"status": "invalid status"}`),
		},
		{name: "paging", path: "/v1/lessons?skip=1&limit=1", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, pub)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_lessonApi_create(t *testing.T) {
	env := setup(t)

	teacher := env.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher, "", true)
	student := env.createUser(t, "Student", "student@test.cd", user.RoleStudent, "", true)

	body := marchallObj(t, map[string]string{"title": "Algebra", "description": "numbers"})

	// students may not create
	req, rec := newAuthRequest(http.MethodPost, "/v1/lessons", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	// title is required
	req, rec = newAuthRequest(http.MethodPost, "/v1/lessons", getToken(t, teacher), []byte(`{}`))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/lessons", getToken(t, teacher), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var les lesson.Lesson
	unmarchallObj(t, rec.Body.Bytes(), &les)
	if les.Status != lesson.StatusDraft {
		t.Errorf("Status = %q, want default %q", les.Status, lesson.StatusDraft)
	}
	if les.TeacherID == nil || *les.TeacherID != teacher.ID {
		t.Errorf("TeacherID = %v, want creator %d", les.TeacherID, teacher.ID)
	}
}

func Test_lessonApi_detail(t *testing.T) {
	env := setup(t)

	teacher := env.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher, "", true)
	other := env.createUser(t, "Other", "other@test.cd", user.RoleTeacher, "", true)
	student := env.createUser(t, "Student", "student@test.cd", user.RoleStudent, "", true)
	admin := env.createUser(t, "Admin", "admin@test.cd", user.RoleAdmin, "", true)

	draft := env.createLesson(t, teacher, "Draft", lesson.StatusDraft)
	pub := env.createLesson(t, teacher, "Published", lesson.StatusPublished)

	draftPath := fmt.Sprintf("/v1/lessons/%d", draft.ID)
	pubPath := fmt.Sprintf("/v1/lessons/%d", pub.ID)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "owner reads draft", path: draftPath, token: getToken(t, teacher), wantCode: http.StatusOK},
		{name: "admin reads draft", path: draftPath, token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "student blocked from draft", path: draftPath, token: getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "student reads published", path: pubPath, token: getToken(t, student), wantCode: http.StatusOK},
		{name: "other teacher blocked", path: pubPath, token: getToken(t, other), wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "unknown lesson", path: "/v1/lessons/999", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "lesson not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// detail carries teacher, modules and student count
	if _, err := env.lessonSvc.CreateModule(context.Background(), teacher, pub.ID, lesson.NewModule{Title: "Intro", Order: 1}); err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	if _, err := env.lessonSvc.Enroll(context.Background(), student, pub.ID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, pubPath, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want %v", rec.Code, http.StatusOK)
	}
	var detail lesson.Detail
	unmarchallObj(t, rec.Body.Bytes(), &detail)
	if detail.Teacher == nil || detail.Teacher.ID != teacher.ID {
		t.Errorf("Teacher = %+v, want user %d", detail.Teacher, teacher.ID)
	}
	if len(detail.Modules) != 1 || detail.Modules[0].Title != "Intro" {
		t.Errorf("Modules = %+v, want one Intro", detail.Modules)
	}
	if detail.StudentCount != 1 {
		t.Errorf("StudentCount = %d, want 1", detail.StudentCount)
	}
}

func Test_lessonApi_update_delete(t *testing.T) {
	env := setup(t)

	teacher := env.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher, "", true)
	other := env.createUser(t, "Other", "other@test.cd", user.RoleTeacher, "", true)

	les := env.createLesson(t, teacher, "Algebra", lesson.StatusDraft)
	path := fmt.Sprintf("/v1/lessons/%d", les.ID)

	// only the owner (or admin) may update
	req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, other), marchallObj(t, map[string]string{"title": "Hijack"}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	// partial update keeps missing fields
	req, rec = newAuthRequest(http.MethodPatch, path, getToken(t, teacher), marchallObj(t, map[string]string{"status": "published"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var upd lesson.Lesson
	unmarchallObj(t, rec.Body.Bytes(), &upd)
	if upd.Status != lesson.StatusPublished {
		t.Errorf("Status = %q, want %q", upd.Status, lesson.StatusPublished)
	}
	if upd.Title != "Algebra" {
		t.Errorf("Title = %q, want unchanged", upd.Title)
	}

	// invalid status value
	req, rec = newAuthRequest(http.MethodPatch, path, getToken(t, teacher), marchallObj(t, map[string]string{"status": "lol"}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"status": "status must be one of [draft published archived]"}`)}, rec)

	// delete
	req, rec = newAuthRequest(http.MethodDelete, path, getToken(t, other))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodDelete, path, getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)

	req, rec = newAuthRequest(http.MethodGet, path, getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "lesson not found"})}, rec)
}

func Test_lessonApi_enroll(t *testing.T) {
	env := setup(t)

	teacher := env.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher, "", true)
	student := env.createUser(t, "Student", "student@test.cd", user.RoleStudent, "", true)

	draft := env.createLesson(t, teacher, "Draft", lesson.StatusDraft)
	pub := env.createLesson(t, teacher, "Published", lesson.StatusPublished)

	enrollPath := func(id int) string { return fmt.Sprintf("/v1/lessons/%d/enroll", id) }
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	// draft lessons are closed
	req, rec := newAuthRequest(http.MethodPost, enrollPath(draft.ID), getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)

	// teachers cannot enroll
	req, rec = newAuthRequest(http.MethodPost, enrollPath(pub.ID), getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)

	req, rec = newAuthRequest(http.MethodPost, enrollPath(pub.ID), getToken(t, student))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var enr lesson.Enrollment
	unmarchallObj(t, rec.Body.Bytes(), &enr)
	if enr.Status != lesson.EnrollmentActive {
		t.Errorf("Status = %q, want %q", enr.Status, lesson.EnrollmentActive)
	}

	// enrolling twice is idempotent
	req, rec = newAuthRequest(http.MethodPost, enrollPath(pub.ID), getToken(t, student))
	env.app.ServeHTTP(rec, req)
	var again lesson.Enrollment
	unmarchallObj(t, rec.Body.Bytes(), &again)
	if again.ID != enr.ID {
		t.Errorf("re-enroll created a new row: ID = %d, want %d", again.ID, enr.ID)
	}

	// a dropped enrollment is flipped back to active on re-enroll
	if _, err := env.lessonSvc.UpdateEnrollmentStatus(context.Background(), teacher, pub.ID, student.ID, "dropped"); err != nil {
		t.Fatalf("UpdateEnrollmentStatus() failed: %v", err)
	}
	req, rec = newAuthRequest(http.MethodPost, enrollPath(pub.ID), getToken(t, student))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var reactivated lesson.Enrollment
	unmarchallObj(t, rec.Body.Bytes(), &reactivated)
	if reactivated.ID != enr.ID || reactivated.Status != lesson.EnrollmentActive {
		t.Errorf("re-enroll = %+v, want row %d active", reactivated, enr.ID)
	}

	// the lesson now shows up in the student's enrolled listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/lessons/enrolled", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, pub)}, rec)

	// and the teacher listing only holds the teacher's lessons
	req, rec = newAuthRequest(http.MethodGet, "/v1/lessons/teacher", getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, draft, pub)}, rec)

	// students have no teacher listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/lessons/teacher", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)
}

func Test_lessonApi_modules(t *testing.T) {
	env := setup(t)

	teacher := env.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher, "", true)
	other := env.createUser(t, "Other", "other@test.cd", user.RoleTeacher, "", true)
	student := env.createUser(t, "Student", "student@test.cd", user.RoleStudent, "", true)

	les := env.createLesson(t, teacher, "Physics", lesson.StatusPublished)
	modsPath := fmt.Sprintf("/v1/lessons/%d/modules", les.ID)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	// only the owner may add modules
	req, rec := newAuthRequest(http.MethodPost, modsPath, getToken(t, other), marchallObj(t, map[string]string{"title": "Hijack"}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)

	req, rec = newAuthRequest(http.MethodPost, modsPath, getToken(t, teacher), marchallObj(t, map[string]interface{}{"title": "Waves", "order": 2}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var waves lesson.Module
	unmarchallObj(t, rec.Body.Bytes(), &waves)

	req, rec = newAuthRequest(http.MethodPost, modsPath, getToken(t, teacher), marchallObj(t, map[string]interface{}{"title": "Mechanics", "order": 1}))
	env.app.ServeHTTP(rec, req)
	var mech lesson.Module
	unmarchallObj(t, rec.Body.Bytes(), &mech)

	// students read modules of published lessons, order-sorted
	req, rec = newAuthRequest(http.MethodGet, modsPath, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, mech, waves)}, rec)

	// module detail
	modPath := fmt.Sprintf("%s/%d", modsPath, waves.ID)
	req, rec = newAuthRequest(http.MethodGet, modPath, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, waves)}, rec)

	// modules are only reachable through their lesson
	otherLes := env.createLesson(t, other, "Chemistry", lesson.StatusPublished)
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/lessons/%d/modules/%d", otherLes.ID, waves.ID), getToken(t, other))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "module not found"})}, rec)

	// partial module update
	req, rec = newAuthRequest(http.MethodPatch, modPath, getToken(t, teacher), marchallObj(t, map[string]int{"order": 3}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var upd lesson.Module
	unmarchallObj(t, rec.Body.Bytes(), &upd)
	if upd.Order != 3 || upd.Title != "Waves" {
		t.Errorf("update = %+v, want order 3, title preserved", upd)
	}

	// students may not delete modules
	req, rec = newAuthRequest(http.MethodDelete, modPath, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)

	req, rec = newAuthRequest(http.MethodDelete, modPath, getToken(t, teacher))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)
}
