package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/langhour/tracker/core/hours"
)

const entryColumns = `id, user_id, date, hours, description, modalities, created_at`

type entryRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Date        time.Time      `db:"date"`
	Hours       int            `db:"hours"`
	Description string         `db:"description"`
	Modalities  pq.StringArray `db:"modalities"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r entryRow) toEntry() hours.Entry {
	return hours.Entry{
		ID:          r.ID,
		UserID:      r.UserID,
		Date:        r.Date.UTC(),
		Hours:       r.Hours,
		Description: r.Description,
		Modalities:  []string(r.Modalities),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type hoursRepository struct {
	db *sqlx.DB
}

var _ hours.Repository = (*hoursRepository)(nil)

func NewHoursRepository(db *sqlx.DB) hours.Repository {
	return &hoursRepository{db: db}
}

// CreateEntries inserts all entries in a single transaction.
func (repo *hoursRepository) CreateEntries(ctx context.Context, entries ...hours.Entry) ([]hours.Entry, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO language_hours (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				e.ID, e.UserID, e.Date, e.Hours, e.Description, pq.Array(e.Modalities), e.CreatedAt,
			)
			if err != nil {
				return dbError("inserting entry", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *hoursRepository) GetEntry(ctx context.Context, id string) (hours.Entry, error) {
	var row entryRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+entryColumns+` FROM language_hours WHERE id = $1`, id); err != nil {
		return hours.Entry{}, notFound("getting entry", err, hours.ErrNotFound)
	}
	return row.toEntry(), nil
}

func (repo *hoursRepository) QueryEntries(ctx context.Context, filter hours.QueryFilter) ([]hours.Entry, error) {
	var w where
	if filter.UserID != "" {
		w.add(`user_id::text = ?`, filter.UserID)
	}
	if len(filter.UserIDs) > 0 {
		w.add(`user_id::text = ANY(?)`, pq.Array(filter.UserIDs))
	}
	if !filter.From.IsZero() {
		w.add(`date >= ?`, filter.From)
	}
	if !filter.To.IsZero() {
		w.add(`date <= ?`, filter.To)
	}
	if filter.Modality != "" {
		w.add(`? = ANY(modalities)`, filter.Modality)
	}

	var rows []entryRow
	query := `SELECT ` + entryColumns + ` FROM language_hours` + w.String() + ` ORDER BY date DESC, created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, dbError("querying entries", err)
	}
	entries := make([]hours.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

func (repo *hoursRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM language_hours WHERE id = $1`, id)
	if err != nil {
		return notFound("deleting entry", err, hours.ErrNotFound)
	}
	return mustAffect("deleting entry", res, hours.ErrNotFound)
}

func (repo *hoursRepository) SumHours(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var total int
	err := repo.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(hours), 0) FROM language_hours WHERE user_id = $1 AND date BETWEEN $2 AND $3`,
		userID, from, to,
	)
	if err != nil {
		if notFound("", err, hours.ErrNotFound) == hours.ErrNotFound {
			return 0, nil
		}
		return 0, dbError("summing hours", err)
	}
	return total, nil
}
