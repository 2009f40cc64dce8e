package sqlxrepos

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/course"
	"github.com/langhour/tracker/core/file"
	"github.com/langhour/tracker/core/message"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

const courseColumns = `id, user_id, name, code, length, start_date, end_date, created_at`

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.Name, c.Code, c.Length, c.StartDate, c.EndDate, c.CreatedAt,
	)
	if err != nil {
		return course.Course{}, dbError("inserting course", err)
	}
	return c, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	rows, err := repo.query(ctx, ` WHERE id::text = $1`, id)
	if err != nil {
		return course.Course{}, notFound("getting course", err, course.ErrNotFound)
	}
	if len(rows) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return rows[0], nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var w where
	if filter.UserID != "" {
		w.add(`user_id::text = ?`, filter.UserID)
	}
	if len(filter.UserIDs) > 0 {
		w.add(`user_id::text = ANY(?)`, pq.Array(filter.UserIDs))
	}
	courses, err := repo.query(ctx, w.String(), w.args...)
	return courses, dbError("querying courses", err)
}

func (repo *courseRepository) query(ctx context.Context, cond string, args ...interface{}) ([]course.Course, error) {
	rows, err := repo.db.QueryxContext(ctx,
		`SELECT `+courseColumns+` FROM courses`+cond+` ORDER BY start_date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var courses []course.Course
	for rows.Next() {
		var c course.Course
		if err = rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Code, &c.Length, &c.StartDate, &c.EndDate, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.StartDate, c.EndDate, c.CreatedAt = c.StartDate.UTC(), c.EndDate.UTC(), c.CreatedAt.UTC()
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return notFound("deleting course", err, course.ErrNotFound)
	}
	return mustAffect("deleting course", res, course.ErrNotFound)
}

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

const messageColumns = `id, sender_id, recipient_id, content, read, archived, created_at`

type messageRow struct {
	ID          string    `db:"id"`
	SenderID    string    `db:"sender_id"`
	RecipientID string    `db:"recipient_id"`
	Content     string    `db:"content"`
	Read        bool      `db:"read"`
	Archived    bool      `db:"archived"`
	CreatedAt   null.Time `db:"created_at"`
}

func (r messageRow) toMessage() message.Message {
	return message.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Content:     r.Content,
		Read:        r.Read,
		Archived:    r.Archived,
		CreatedAt:   r.CreatedAt.Time.UTC(),
	}
}

func messageWhere(filter message.QueryFilter) *where {
	w := &where{}
	if filter.SenderID != "" {
		w.add(`sender_id::text = ?`, filter.SenderID)
	}
	if filter.RecipientID != "" {
		w.add(`recipient_id::text = ?`, filter.RecipientID)
	}
	if filter.Archived != nil {
		w.add(`archived = ?`, *filter.Archived)
	}
	if filter.Unread {
		w.add(`read = ?`, false)
	}
	return w
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Content, msg.Read, msg.Archived, msg.CreatedAt,
	)
	if err != nil {
		return message.Message{}, dbError("inserting message", err)
	}
	return msg, nil
}

func (repo *messageRepository) GetMessage(ctx context.Context, id string) (message.Message, error) {
	var row messageRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id); err != nil {
		return message.Message{}, notFound("getting message", err, message.ErrNotFound)
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, filter message.QueryFilter) ([]message.Message, error) {
	w := messageWhere(filter)
	var rows []messageRow
	query := `SELECT ` + messageColumns + ` FROM messages` + w.String() + ` ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, dbError("querying messages", err)
	}
	msgs := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.toMessage())
	}
	return msgs, nil
}

func (repo *messageRepository) UpdateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE messages SET read = $2, archived = $3 WHERE id = $1`, msg.ID, msg.Read, msg.Archived)
	if err != nil {
		return message.Message{}, notFound("updating message", err, message.ErrNotFound)
	}
	if err = mustAffect("updating message", res, message.ErrNotFound); err != nil {
		return message.Message{}, err
	}
	return msg, nil
}

func (repo *messageRepository) CountMessages(ctx context.Context, filter message.QueryFilter) (int, error) {
	w := messageWhere(filter)
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages`+w.String(), w.args...); err != nil {
		return 0, dbError("counting messages", err)
	}
	return n, nil
}

type fileRepository struct {
	db *sqlx.DB
}

var _ file.Repository = (*fileRepository)(nil)

func NewFileRepository(db *sqlx.DB) file.Repository {
	return &fileRepository{db: db}
}

const fileColumns = `id, user_id, name, content_type, size, created_at`

type fileRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Name        string    `db:"name"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	Content     []byte    `db:"content"`
	CreatedAt   null.Time `db:"created_at"`
}

func (r fileRow) toFile() file.File {
	return file.File{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		ContentType: r.ContentType,
		Size:        r.Size,
		Content:     r.Content,
		CreatedAt:   r.CreatedAt.Time.UTC(),
	}
}

func (repo *fileRepository) CreateFile(ctx context.Context, f file.File) (file.File, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO files (id, user_id, name, content_type, size, content, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.UserID, f.Name, f.ContentType, f.Size, f.Content, f.CreatedAt,
	)
	if err != nil {
		return file.File{}, dbError("inserting file", err)
	}
	f.Content = nil
	return f, nil
}

func (repo *fileRepository) GetFile(ctx context.Context, id string, withContent bool) (file.File, error) {
	cols := fileColumns
	if withContent {
		cols += ", content"
	}
	var row fileRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+cols+` FROM files WHERE id = $1`, id); err != nil {
		return file.File{}, notFound("getting file", err, file.ErrNotFound)
	}
	return row.toFile(), nil
}

func (repo *fileRepository) QueryFiles(ctx context.Context, userID string) ([]file.File, error) {
	var rows []fileRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+fileColumns+` FROM files WHERE user_id::text = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, dbError("querying files", err)
	}
	files := make([]file.File, 0, len(rows))
	for _, r := range rows {
		files = append(files, r.toFile())
	}
	return files, nil
}

func (repo *fileRepository) DeleteFile(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return notFound("deleting file", err, file.ErrNotFound)
	}
	return mustAffect("deleting file", res, file.ErrNotFound)
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *sqlx.DB) audit.Repository {
	return &auditRepository{db: db}
}

type logRow struct {
	ID        string      `db:"id"`
	UserID    null.String `db:"user_id"`
	Message   string      `db:"message"`
	CreatedAt null.Time   `db:"created_at"`
}

func (repo *auditRepository) CreateLog(ctx context.Context, l audit.Log) (audit.Log, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO logs (id, user_id, message, created_at) VALUES ($1, $2, $3, $4)`,
		l.ID, null.NewString(l.UserID, l.UserID != ""), l.Message, l.CreatedAt,
	)
	if err != nil {
		return audit.Log{}, dbError("inserting log", err)
	}
	return l, nil
}

func (repo *auditRepository) QueryLogs(ctx context.Context, filter audit.QueryFilter) ([]audit.Log, error) {
	var w where
	if filter.UserID != "" {
		w.add(`user_id::text = ?`, filter.UserID)
	}
	if !filter.Since.IsZero() {
		w.add(`created_at >= ?`, filter.Since)
	}
	query := `SELECT id, user_id, message, created_at FROM logs` + w.String() + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		w.args = append(w.args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(w.args))
	}

	var rows []logRow
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, dbError("querying logs", err)
	}
	logs := make([]audit.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, audit.Log{ID: r.ID, UserID: r.UserID.String, Message: r.Message, CreatedAt: r.CreatedAt.Time.UTC()})
	}
	return logs, nil
}
