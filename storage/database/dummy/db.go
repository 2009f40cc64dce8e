// Package dummydb holds in-memory repositories, used for local development and tests.
package dummydb

import (
	"sync"

	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/course"
	"github.com/langhour/tracker/core/file"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/message"
	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/user"
)

type (
	DB struct {
		user     *table[user.User]
		group    *table[user.Group]
		entry    *table[hours.Entry]
		record   *table[proficiency.Record]
		course   *table[course.Course]
		message  *table[message.Message]
		file     *table[file.File]
		auditLog *table[audit.Log]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]T
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

// all returns a copy of the table rows. Callers must hold the lock.
func (t *table[T]) all() []T {
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, row)
	}
	return rows
}

func Open() *DB {
	return &DB{
		user:     newTable[user.User](),
		group:    newTable[user.Group](),
		entry:    newTable[hours.Entry](),
		record:   newTable[proficiency.Record](),
		course:   newTable[course.Course](),
		message:  newTable[message.Message](),
		file:     newTable[file.File](),
		auditLog: newTable[audit.Log](),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	flush(db.user)
	flush(db.group)
	flush(db.entry)
	flush(db.record)
	flush(db.course)
	flush(db.message)
	flush(db.file)
	flush(db.auditLog)
}

func flush[T any](t *table[T]) {
	t.Lock()
	defer t.Unlock()
	t.rows = make(map[string]T)
}
