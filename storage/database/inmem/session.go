package inmemdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core/economy"
)

type sessionRepository struct {
	db *sessionTable
}

func NewSessionRepository(db *DB) economy.Repository {
	return &sessionRepository{db: db.session}
}

// clone deep copies rec through its JSON form so callers never share state with the table.
func clone(rec economy.SessionRecord) (economy.SessionRecord, error) {
	data, err := json.Marshal(rec.State)
	if err != nil {
		return economy.SessionRecord{}, errors.Wrap(err, "encoding session state")
	}
	c := rec
	c.State = economy.State{}
	if err := json.Unmarshal(data, &c.State); err != nil {
		return economy.SessionRecord{}, errors.Wrap(err, "decoding session state")
	}
	return c, nil
}

func (repo *sessionRepository) CreateSession(_ context.Context, rec economy.SessionRecord) (economy.SessionRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[rec.ID]; ok {
		return economy.SessionRecord{}, errors.Wrapf(economy.ErrConflict, "session %q exists", rec.ID)
	}
	stored, err := clone(rec)
	if err != nil {
		return economy.SessionRecord{}, err
	}
	repo.db.table[rec.ID] = &stored
	return rec, nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (economy.SessionRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return clone(*rec)
	}
	return economy.SessionRecord{}, errors.Wrapf(economy.ErrNotFound, "session %q", id)
}

func (repo *sessionRepository) UpdateSession(_ context.Context, rec economy.SessionRecord) (economy.SessionRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[rec.ID]
	if !ok {
		return economy.SessionRecord{}, errors.Wrapf(economy.ErrNotFound, "session %q", rec.ID)
	}
	if orig.Version != rec.Version {
		return economy.SessionRecord{}, errors.Wrapf(economy.ErrConflict, "session %q is at version %d, not %d", rec.ID, orig.Version, rec.Version)
	}

	rec.Version++
	rec.CreatedAt = orig.CreatedAt
	stored, err := clone(rec)
	if err != nil {
		return economy.SessionRecord{}, err
	}
	repo.db.table[rec.ID] = &stored
	return rec, nil
}

func (repo *sessionRepository) QuerySessions(_ context.Context) ([]economy.SessionInfo, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	infos := make([]economy.SessionInfo, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		infos = append(infos, rec.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return errors.Wrapf(economy.ErrNotFound, "session %q", id)
	}
	delete(repo.db.table, id)
	return nil
}
