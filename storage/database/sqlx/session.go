package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core/economy"
)

// sessionRow maps the economy_session table. Timestamps are unix nanoseconds.
type sessionRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Snapshot  string `db:"snapshot"`
	Version   int    `db:"version"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func newSessionRow(rec economy.SessionRecord) (sessionRow, error) {
	snapshot, err := json.Marshal(rec.State)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "encoding session state")
	}
	return sessionRow{
		ID:        rec.ID,
		Name:      rec.Name,
		Snapshot:  string(snapshot),
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.UnixNano(),
		UpdatedAt: rec.UpdatedAt.UnixNano(),
	}, nil
}

func (row sessionRow) info() economy.SessionInfo {
	return economy.SessionInfo{
		ID:        row.ID,
		Name:      row.Name,
		Version:   row.Version,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, row.UpdatedAt).UTC(),
	}
}

func (row sessionRow) record() (economy.SessionRecord, error) {
	info := row.info()
	rec := economy.SessionRecord{
		ID:        info.ID,
		Name:      info.Name,
		Version:   info.Version,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Snapshot), &rec.State); err != nil {
		return economy.SessionRecord{}, errors.Wrapf(err, "decoding session %q", row.ID)
	}
	return rec, nil
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) economy.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, rec economy.SessionRecord) (economy.SessionRecord, error) {
	row, err := newSessionRow(rec)
	if err != nil {
		return economy.SessionRecord{}, err
	}
	q := `INSERT INTO economy_session (id, name, snapshot, version, created_at, updated_at)
		VALUES (:id, :name, :snapshot, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return economy.SessionRecord{}, errors.Wrap(err, "inserting session")
	}
	return rec, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (economy.SessionRecord, error) {
	var row sessionRow
	q := repo.db.Rebind(`SELECT id, name, snapshot, version, created_at, updated_at FROM economy_session WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return economy.SessionRecord{}, errors.Wrapf(economy.ErrNotFound, "session %q", id)
		}
		return economy.SessionRecord{}, errors.Wrapf(err, "selecting session %q", id)
	}
	return row.record()
}

// UpdateSession only writes when the stored version is still rec.Version.
func (repo *sessionRepository) UpdateSession(ctx context.Context, rec economy.SessionRecord) (economy.SessionRecord, error) {
	row, err := newSessionRow(rec)
	if err != nil {
		return economy.SessionRecord{}, err
	}
	q := repo.db.Rebind(`UPDATE economy_session
		SET name = ?, snapshot = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`)
	res, err := repo.db.ExecContext(ctx, q, row.Name, row.Snapshot, row.UpdatedAt, row.ID, row.Version)
	if err != nil {
		return economy.SessionRecord{}, errors.Wrapf(err, "updating session %q", rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return economy.SessionRecord{}, errors.Wrapf(err, "updating session %q", rec.ID)
	}
	if n == 0 {
		var version int
		q := repo.db.Rebind(`SELECT version FROM economy_session WHERE id = ?`)
		if err := repo.db.GetContext(ctx, &version, q, rec.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return economy.SessionRecord{}, errors.Wrapf(economy.ErrNotFound, "session %q", rec.ID)
			}
			return economy.SessionRecord{}, errors.Wrapf(err, "selecting session %q", rec.ID)
		}
		return economy.SessionRecord{}, errors.Wrapf(economy.ErrConflict, "session %q is at version %d, not %d", rec.ID, version, rec.Version)
	}
	return repo.GetSession(ctx, rec.ID)
}

func (repo *sessionRepository) QuerySessions(ctx context.Context) ([]economy.SessionInfo, error) {
	var rows []sessionRow
	q := `SELECT id, name, version, created_at, updated_at FROM economy_session ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting sessions")
	}
	infos := make([]economy.SessionInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.info())
	}
	return infos, nil
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	q := repo.db.Rebind(`DELETE FROM economy_session WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrapf(err, "deleting session %q", id)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrapf(err, "deleting session %q", id)
	} else if n == 0 {
		return errors.Wrapf(economy.ErrNotFound, "session %q", id)
	}
	return nil
}
