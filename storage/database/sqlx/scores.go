package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/score"
)

const recordColumns = `id, user_id, language, dicode, kind, listening, reading, speaking, dialects, date, created_at`

type recordRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Language  string         `db:"language"`
	Dicode    string         `db:"dicode"`
	Kind      string         `db:"kind"`
	Listening null.String    `db:"listening"`
	Reading   null.String    `db:"reading"`
	Speaking  null.String    `db:"speaking"`
	Dialects  pq.StringArray `db:"dialects"`
	Date      time.Time      `db:"date"`
	CreatedAt time.Time      `db:"created_at"`
}

func scoreString(s *score.Score) null.String {
	if s == nil {
		return null.String{}
	}
	return null.StringFrom(s.String())
}

func scoreFrom(ns null.String) (*score.Score, error) {
	if !ns.Valid {
		return nil, nil
	}
	s, err := score.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r recordRow) toRecord() (proficiency.Record, error) {
	rec := proficiency.Record{
		ID:        r.ID,
		UserID:    r.UserID,
		Language:  r.Language,
		Dicode:    r.Dicode,
		Kind:      proficiency.Kind(r.Kind),
		Date:      r.Date.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
	}
	var err error
	if rec.Listening, err = scoreFrom(r.Listening); err != nil {
		return rec, err
	}
	if rec.Reading, err = scoreFrom(r.Reading); err != nil {
		return rec, err
	}
	if rec.Speaking, err = scoreFrom(r.Speaking); err != nil {
		return rec, err
	}
	for _, code := range r.Dialects {
		s, err := score.Parse(code)
		if err != nil {
			return rec, err
		}
		rec.Dialects = append(rec.Dialects, s)
	}
	return rec, nil
}

type proficiencyRepository struct {
	db *sqlx.DB
}

var _ proficiency.Repository = (*proficiencyRepository)(nil)

func NewProficiencyRepository(db *sqlx.DB) proficiency.Repository {
	return &proficiencyRepository{db: db}
}

func (repo *proficiencyRepository) CreateRecord(ctx context.Context, rec proficiency.Record) (proficiency.Record, error) {
	dialects := make([]string, 0, len(rec.Dialects))
	for _, d := range rec.Dialects {
		dialects = append(dialects, d.String())
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO scores (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.UserID, rec.Language, rec.Dicode, string(rec.Kind),
		scoreString(rec.Listening), scoreString(rec.Reading), scoreString(rec.Speaking),
		pq.Array(dialects), rec.Date, rec.CreatedAt,
	)
	if err != nil {
		return proficiency.Record{}, dbError("inserting score", err)
	}
	return rec, nil
}

func (repo *proficiencyRepository) GetRecord(ctx context.Context, id string) (proficiency.Record, error) {
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM scores WHERE id = $1`, id); err != nil {
		return proficiency.Record{}, notFound("getting score", err, proficiency.ErrNotFound)
	}
	rec, err := row.toRecord()
	if err != nil {
		return proficiency.Record{}, dbError("decoding score", err)
	}
	return rec, nil
}

func (repo *proficiencyRepository) QueryRecords(ctx context.Context, filter proficiency.QueryFilter) ([]proficiency.Record, error) {
	var w where
	if filter.UserID != "" {
		w.add(`user_id::text = ?`, filter.UserID)
	}
	if len(filter.UserIDs) > 0 {
		w.add(`user_id::text = ANY(?)`, pq.Array(filter.UserIDs))
	}
	if filter.Kind != "" {
		w.add(`kind = ?`, filter.Kind)
	}

	var rows []recordRow
	query := `SELECT ` + recordColumns + ` FROM scores` + w.String() + ` ORDER BY date DESC, created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, dbError("querying scores", err)
	}
	records := make([]proficiency.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, dbError("decoding score", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo *proficiencyRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM scores WHERE id = $1`, id)
	if err != nil {
		return notFound("deleting score", err, proficiency.ErrNotFound)
	}
	return mustAffect("deleting score", res, proficiency.ErrNotFound)
}
