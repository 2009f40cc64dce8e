package dummydb

import (
	"context"
	"sort"

	"github.com/langhour/tracker/core/proficiency"
)

type proficiencyRepository struct {
	db *table[proficiency.Record]
}

var _ proficiency.Repository = (*proficiencyRepository)(nil)

func NewProficiencyRepository(db *DB) proficiency.Repository {
	return &proficiencyRepository{db: db.record}
}

func (repo *proficiencyRepository) CreateRecord(_ context.Context, rec proficiency.Record) (proficiency.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[rec.ID] = rec
	return rec, nil
}

func (repo *proficiencyRepository) GetRecord(_ context.Context, id string) (proficiency.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.rows[id]; ok {
		return rec, nil
	}
	return proficiency.Record{}, proficiency.ErrNotFound
}

func (repo *proficiencyRepository) QueryRecords(_ context.Context, filter proficiency.QueryFilter) ([]proficiency.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]proficiency.Record, 0)
	for _, rec := range repo.db.rows {
		if filter.Match(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (repo *proficiencyRepository) DeleteRecord(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return proficiency.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
