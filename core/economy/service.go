package economy

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core"
)

const maxUpdateAttempts = 3

type (
	// SessionRecord is a persisted Session. Version increases with every saved update.
	SessionRecord struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Version   int       `json:"version"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
		State     State     `json:"state"`
	}

	SessionInfo struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Version   int       `json:"version"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// NewSessionRequest contains information needed to create a new persisted Session.
	NewSessionRequest struct {
		Name string `json:"name" validate:"required,notblank,max=120"`
		Demo bool   `json:"demo"`
	}

	Repository interface {
		CreateSession(ctx context.Context, rec SessionRecord) (SessionRecord, error)
		GetSession(ctx context.Context, id string) (SessionRecord, error)
		// UpdateSession saves rec only if the stored version still equals rec.Version,
		// failing with ErrConflict otherwise. The saved record has Version+1.
		UpdateSession(ctx context.Context, rec SessionRecord) (SessionRecord, error)
		QuerySessions(ctx context.Context) ([]SessionInfo, error)
		DeleteSession(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
		opts Options
	}
)

func (ns *NewSessionRequest) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

func (rec SessionRecord) Info() SessionInfo {
	return SessionInfo{
		ID:        rec.ID,
		Name:      rec.Name,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func NewService(repo Repository, conf *core.Config) *Service {
	return NewServiceWithOptions(repo, OptionsFromConfig(conf))
}

func NewServiceWithOptions(repo Repository, opts Options) *Service {
	return &Service{repo: repo, opts: opts.normalized()}
}

func (svc *Service) Create(ctx context.Context, ns NewSessionRequest) (SessionRecord, error) {
	var (
		sess *Session
		err  error
	)
	if ns.Demo {
		if sess, err = NewDemoSession(svc.opts); err != nil {
			return SessionRecord{}, errors.Wrap(err, "seeding demo session")
		}
	} else {
		sess = NewSession(svc.opts)
	}

	now := svc.opts.Now().UTC()
	rec := SessionRecord{
		ID:        uuid.NewString(),
		Name:      core.CleanString(ns.Name),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		State:     sess.State(),
	}
	return svc.repo.CreateSession(ctx, rec)
}

func (svc *Service) Query(ctx context.Context) ([]SessionInfo, error) {
	return svc.repo.QuerySessions(ctx)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSession(ctx, id)
}

// Get loads a session; changes made to it are not saved, use Update for that.
func (svc *Service) Get(ctx context.Context, id string) (*Session, SessionInfo, error) {
	rec, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return nil, SessionInfo{}, err
	}
	sess, err := RestoreSession(rec.State, svc.opts)
	if err != nil {
		return nil, SessionInfo{}, errors.Wrapf(err, "restoring session %q", id)
	}
	return sess, rec.Info(), nil
}

// View runs fn on the latest version of a session without saving anything.
func (svc *Service) View(ctx context.Context, id string, fn func(*Session, SessionInfo) error) error {
	sess, info, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(sess, info)
}

// Update applies fn to the latest version of a session and saves the result.
// If fn fails nothing is saved. On a concurrent save fn runs again on the fresher state,
// so it must only depend on its argument.
func (svc *Service) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, SessionInfo, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		rec, err := svc.repo.GetSession(ctx, id)
		if err != nil {
			return nil, SessionInfo{}, err
		}
		sess, err := RestoreSession(rec.State, svc.opts)
		if err != nil {
			return nil, SessionInfo{}, errors.Wrapf(err, "restoring session %q", id)
		}
		if err := fn(sess); err != nil {
			return nil, SessionInfo{}, err
		}

		rec.State = sess.State()
		rec.UpdatedAt = svc.opts.Now().UTC()
		saved, err := svc.repo.UpdateSession(ctx, rec)
		if err == nil {
			return sess, saved.Info(), nil
		}
		if errors.Cause(err) != ErrConflict {
			return nil, SessionInfo{}, errors.Wrapf(err, "saving session %q", id)
		}
		lastErr = err
	}
	return nil, SessionInfo{}, errors.Wrapf(lastErr, "saving session %q after %d attempts", id, maxUpdateAttempts)
}
