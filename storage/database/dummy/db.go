package dummydb

import (
	"sync"

	"github.com/edufi/backend/core/lesson"
	"github.com/edufi/backend/core/user"
)

// DB is an in-memory store backing the dummy repositories in tests.
type (
	DB struct {
		user   *userTable
		lesson *lessonTable
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
		pk    int
	}

	lessonTable struct {
		sync.RWMutex
		lessons     map[int]*lesson.Lesson
		modules     map[int]*lesson.Module
		enrollments map[int]*lesson.Enrollment
		lessonPK    int
		modulePK    int
		enrollPK    int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		lesson: &lessonTable{
			lessons:     make(map[int]*lesson.Lesson),
			modules:     make(map[int]*lesson.Module),
			enrollments: make(map[int]*lesson.Enrollment),
		},
	}
	return db, nil
}
