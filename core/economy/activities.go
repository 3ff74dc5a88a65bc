package economy

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core"
)

// MaxCoinReward bounds the coins a single activity can pay.
const MaxCoinReward = 1_000_000

// ActivityRegistry owns the activities and their lifecycle:
// pending -> submitted -> graded. No transition skips a state or goes back.
type ActivityRegistry struct {
	activities map[string]*Activity
	order      []string
	catalog    *Catalog
	ledger     *Ledger
	now        func() time.Time
}

func NewActivityRegistry(catalog *Catalog, ledger *Ledger, now func() time.Time) *ActivityRegistry {
	if now == nil {
		now = time.Now
	}
	return &ActivityRegistry{
		activities: make(map[string]*Activity),
		catalog:    catalog,
		ledger:     ledger,
		now:        now,
	}
}

func (r *ActivityRegistry) get(id string) (*Activity, error) {
	if act, ok := r.activities[id]; ok {
		return act, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "activity %q", id)
}

func (r *ActivityRegistry) Get(id string) (Activity, error) {
	act, err := r.get(id)
	if err != nil {
		return Activity{}, err
	}
	return copyActivity(act), nil
}

func (r *ActivityRegistry) Create(na NewActivity) (Activity, error) {
	if !r.catalog.Exists(na.SubjectID) {
		return Activity{}, errors.Wrapf(ErrInvalidSubject, "creating activity for %q", na.SubjectID)
	}
	if na.CoinReward < 0 || na.CoinReward > MaxCoinReward {
		return Activity{}, errors.Wrapf(ErrInvalidAmount, "coin reward %d", na.CoinReward)
	}
	title := core.CleanString(na.Title)
	if title == "" {
		return Activity{}, core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field is required"})
	}

	id := core.CleanString(na.ID)
	if id == "" {
		id = uuid.NewString()
	} else if _, ok := r.activities[id]; ok {
		return Activity{}, core.NewValidationError(nil, core.FieldError{Field: "id", Error: "an activity with this id already exists"})
	}

	act := &Activity{
		ID:         id,
		SubjectID:  na.SubjectID,
		Title:      title,
		Deadline:   na.Deadline,
		CoinReward: na.CoinReward,
		Status:     StatusPending,
		CreatedAt:  r.now().UTC(),
	}
	r.activities[id] = act
	r.order = append(r.order, id)
	return copyActivity(act), nil
}

// Submit moves a pending activity to submitted and credits its reward, as one step.
func (r *ActivityRegistry) Submit(id string) (Activity, error) {
	act, err := r.get(id)
	if err != nil {
		return Activity{}, err
	}
	if act.Status != StatusPending {
		return Activity{}, errors.Wrapf(ErrInvalidTransition, "submitting %s activity %q", act.Status, id)
	}
	// the credit is the only step that can fail, so it goes first
	if err := r.ledger.credit(act.SubjectID, act.CoinReward, ReasonActivity, act.ID); err != nil {
		return Activity{}, errors.Wrapf(err, "crediting activity %q", id)
	}
	now := r.now().UTC()
	act.Status = StatusSubmitted
	act.SubmittedAt = &now
	return copyActivity(act), nil
}

func (r *ActivityRegistry) Grade(id string) (Activity, error) {
	act, err := r.get(id)
	if err != nil {
		return Activity{}, err
	}
	if act.Status != StatusSubmitted {
		return Activity{}, errors.Wrapf(ErrInvalidTransition, "grading %s activity %q", act.Status, id)
	}
	now := r.now().UTC()
	act.Status = StatusGraded
	act.GradedAt = &now
	return copyActivity(act), nil
}

// SetCoinReward retunes the reward until the activity is graded.
// A reward already credited on submission is not adjusted.
func (r *ActivityRegistry) SetCoinReward(id string, reward int) (Activity, error) {
	act, err := r.get(id)
	if err != nil {
		return Activity{}, err
	}
	if reward < 0 || reward > MaxCoinReward {
		return Activity{}, errors.Wrapf(ErrInvalidAmount, "coin reward %d", reward)
	}
	if act.Status == StatusGraded {
		return Activity{}, errors.Wrapf(ErrInvalidTransition, "changing reward of graded activity %q", id)
	}
	act.CoinReward = reward
	return copyActivity(act), nil
}

// Score attaches a grade to a graded activity. value must lie in [min, max], weight >= 1.
func (r *ActivityRegistry) Score(id string, value float64, weight int, min, max float64) (Activity, error) {
	act, err := r.get(id)
	if err != nil {
		return Activity{}, err
	}
	if act.Status != StatusGraded {
		return Activity{}, errors.Wrapf(ErrInvalidTransition, "scoring %s activity %q", act.Status, id)
	}
	if math.IsNaN(value) || value < min || value > max {
		return Activity{}, errors.Wrapf(ErrInvalidAmount, "score %v outside [%v, %v]", value, min, max)
	}
	if weight < 1 {
		return Activity{}, errors.Wrapf(ErrInvalidAmount, "score weight %d", weight)
	}
	act.Score = &Score{Value: value, Weight: weight}
	return copyActivity(act), nil
}

// List returns the matching activities in creation order, then sorted by orderings
// (deadline, title, coin_reward, status). Unknown fields are ignored.
func (r *ActivityRegistry) List(filter ActivityFilter, orderings ...core.Ordering) []Activity {
	acts := make([]Activity, 0, len(r.order))
	for _, id := range r.order {
		if act := r.activities[id]; filter.match(act) {
			acts = append(acts, copyActivity(act))
		}
	}
	if len(orderings) > 0 {
		sort.SliceStable(acts, func(i, j int) bool {
			for _, ord := range orderings {
				c := compareActivities(acts[i], acts[j], ord.Field)
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	return acts
}

func compareActivities(a, b Activity, field string) int {
	switch field {
	case "deadline":
		switch {
		case a.Deadline.Before(b.Deadline.Time):
			return -1
		case a.Deadline.After(b.Deadline.Time):
			return 1
		}
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "coin_reward":
		return a.CoinReward - b.CoinReward
	case "status":
		return statusRank[a.Status] - statusRank[b.Status]
	}
	return 0
}

var statusRank = map[Status]int{StatusPending: 0, StatusSubmitted: 1, StatusGraded: 2}

// removeSubject drops every activity of subjectID.
func (r *ActivityRegistry) removeSubject(subjectID string) {
	kept := r.order[:0]
	for _, id := range r.order {
		if r.activities[id].SubjectID == subjectID {
			delete(r.activities, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func copyActivity(act *Activity) Activity {
	c := *act
	if act.SubmittedAt != nil {
		t := *act.SubmittedAt
		c.SubmittedAt = &t
	}
	if act.GradedAt != nil {
		t := *act.GradedAt
		c.GradedAt = &t
	}
	if act.Score != nil {
		s := *act.Score
		c.Score = &s
	}
	return c
}

func restoreActivities(acts []Activity, catalog *Catalog, ledger *Ledger, now func() time.Time) (*ActivityRegistry, error) {
	r := NewActivityRegistry(catalog, ledger, now)
	for i := range acts {
		act := copyActivity(&acts[i])
		if _, ok := statusRank[act.Status]; !ok {
			return nil, errors.Wrapf(ErrInvalidTransition, "restoring activity %q: unknown status %q", act.ID, act.Status)
		}
		if act.ID == "" || r.activities[act.ID] != nil {
			return nil, errors.Errorf("restoring activities: bad activity id %q", act.ID)
		}
		if !catalog.Exists(act.SubjectID) {
			return nil, errors.Wrapf(ErrInvalidSubject, "restoring activity %q", act.ID)
		}
		if act.CoinReward < 0 || act.CoinReward > MaxCoinReward {
			return nil, errors.Wrapf(ErrInvalidAmount, "restoring activity %q: coin reward %d", act.ID, act.CoinReward)
		}
		r.activities[act.ID] = &act
		r.order = append(r.order, act.ID)
	}
	return r, nil
}
