package dummydb

import (
	"context"
	"sort"

	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/course"
	"github.com/langhour/tracker/core/file"
	"github.com/langhour/tracker/core/message"
)

// Courses

type courseRepository struct {
	db *table[course.Course]
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[c.ID] = c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.rows[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.rows {
		if filter.Match(c) {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].StartDate.After(courses[j].StartDate) })
	return courses, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

// Messages

type messageRepository struct {
	db *table[message.Message]
}

var _ message.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[msg.ID] = msg
	return msg, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id string) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if msg, ok := repo.db.rows[id]; ok {
		return msg, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) QueryMessages(_ context.Context, filter message.QueryFilter) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]message.Message, 0)
	for _, msg := range repo.db.rows {
		if filter.Match(msg) {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	return msgs, nil
}

func (repo *messageRepository) UpdateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[msg.ID]; !ok {
		return message.Message{}, message.ErrNotFound
	}
	repo.db.rows[msg.ID] = msg
	return msg, nil
}

func (repo *messageRepository) CountMessages(_ context.Context, filter message.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, msg := range repo.db.rows {
		if filter.Match(msg) {
			count++
		}
	}
	return count, nil
}

// Files

type fileRepository struct {
	db *table[file.File]
}

var _ file.Repository = (*fileRepository)(nil)

func NewFileRepository(db *DB) file.Repository {
	return &fileRepository{db: db.file}
}

func (repo *fileRepository) CreateFile(_ context.Context, f file.File) (file.File, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[f.ID] = f
	f.Content = nil
	return f, nil
}

func (repo *fileRepository) GetFile(_ context.Context, id string, withContent bool) (file.File, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	f, ok := repo.db.rows[id]
	if !ok {
		return file.File{}, file.ErrNotFound
	}
	if !withContent {
		f.Content = nil
	}
	return f, nil
}

func (repo *fileRepository) QueryFiles(_ context.Context, userID string) ([]file.File, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	files := make([]file.File, 0)
	for _, f := range repo.db.rows {
		if f.UserID == userID {
			f.Content = nil
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

func (repo *fileRepository) DeleteFile(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[id]; !ok {
		return file.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

// Audit logs

type auditRepository struct {
	db *table[audit.Log]
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.auditLog}
}

func (repo *auditRepository) CreateLog(_ context.Context, l audit.Log) (audit.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[l.ID] = l
	return l, nil
}

func (repo *auditRepository) QueryLogs(_ context.Context, filter audit.QueryFilter) ([]audit.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]audit.Log, 0)
	for _, l := range repo.db.rows {
		if filter.Match(l) {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	if filter.Limit > 0 && len(logs) > filter.Limit {
		logs = logs[:filter.Limit]
	}
	return logs, nil
}
