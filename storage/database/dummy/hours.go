package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/langhour/tracker/core/hours"
)

type hoursRepository struct {
	db *table[hours.Entry]
}

var _ hours.Repository = (*hoursRepository)(nil)

func NewHoursRepository(db *DB) hours.Repository {
	return &hoursRepository{db: db.entry}
}

func (repo *hoursRepository) CreateEntries(_ context.Context, entries ...hours.Entry) ([]hours.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range entries {
		repo.db.rows[e.ID] = e
	}
	return entries, nil
}

func (repo *hoursRepository) GetEntry(_ context.Context, id string) (hours.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.rows[id]; ok {
		return e, nil
	}
	return hours.Entry{}, hours.ErrNotFound
}

func (repo *hoursRepository) QueryEntries(_ context.Context, filter hours.QueryFilter) ([]hours.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]hours.Entry, 0)
	for _, e := range repo.db.rows {
		if filter.Match(e) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (repo *hoursRepository) DeleteEntry(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return hours.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

func (repo *hoursRepository) SumHours(_ context.Context, userID string, from, to time.Time) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	filter := hours.QueryFilter{UserID: userID, From: from, To: to}
	var total int
	for _, e := range repo.db.rows {
		if filter.Match(e) {
			total += e.Hours
		}
	}
	return total, nil
}
