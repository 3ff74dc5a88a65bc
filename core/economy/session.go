package economy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforstudy/coins/core"
)

// Options are the defaults a new Session starts with.
type Options struct {
	ExpiryDays int
	Segregate  bool
	GradeMin   float64
	GradeMax   float64
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		ExpiryDays: 30,
		Segregate:  true,
		GradeMin:   0,
		GradeMax:   10,
		Now:        time.Now,
	}
}

func (opts Options) normalized() Options {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GradeMin == 0 && opts.GradeMax == 0 {
		opts.GradeMax = 10
	}
	return opts
}

func OptionsFromConfig(conf *core.Config) Options {
	opts := DefaultOptions()
	opts.ExpiryDays = conf.Economy.ExpiryDays
	opts.Segregate = conf.Economy.Segregate
	opts.GradeMin = conf.Economy.GradeMin
	opts.GradeMax = conf.Economy.GradeMax
	return opts
}

// State is the serializable content of a Session.
type State struct {
	Subjects   []Subject      `json:"subjects"`
	Accounts   []string       `json:"accounts"`
	Entries    []Entry        `json:"entries"`
	Activities []Activity     `json:"activities"`
	Rates      []Rate         `json:"rates"`
	Policy     PolicySettings `json:"policy"`
}

// Session is one user's economy: the store every dashboard reads from and forwards
// intents to. Each exported method is indivisible; a failed call changes nothing.
type Session struct {
	mu sync.Mutex

	catalog    *Catalog
	ledger     *Ledger
	activities *ActivityRegistry
	exchange   *Exchange
	policy     *Policy
	now        func() time.Time
}

func NewSession(opts Options) *Session {
	opts = opts.normalized()
	now := opts.Now
	s := &Session{now: now}
	s.catalog = NewCatalog()
	s.ledger = NewLedger(now)
	s.activities = NewActivityRegistry(s.catalog, s.ledger, now)
	s.policy = NewPolicy(s.catalog, opts)
	s.exchange = NewExchange(s.catalog, s.ledger, s.policy)
	return s
}

// RestoreSession rebuilds a Session from a State, checking its invariants.
func RestoreSession(state State, opts Options) (*Session, error) {
	opts = opts.normalized()
	now := opts.Now
	s := &Session{now: now}
	var err error
	if s.catalog, err = restoreCatalog(state.Subjects); err != nil {
		return nil, err
	}
	if s.ledger, err = restoreLedger(state.Accounts, state.Entries, now); err != nil {
		return nil, err
	}
	if s.activities, err = restoreActivities(state.Activities, s.catalog, s.ledger, now); err != nil {
		return nil, err
	}
	policy := state.Policy
	if policy.GradeMax == 0 && policy.GradeMin == 0 {
		policy.GradeMin, policy.GradeMax = opts.GradeMin, opts.GradeMax
	}
	if s.policy, err = restorePolicy(policy, s.catalog); err != nil {
		return nil, err
	}
	if s.exchange, err = restoreExchange(state.Rates, s.catalog, s.ledger, s.policy); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Subjects:   s.catalog.List(),
		Accounts:   s.ledger.Accounts(),
		Entries:    s.ledger.Entries(),
		Activities: s.activities.List(ActivityFilter{}),
		Rates:      s.exchange.Rates(),
		Policy:     s.policy.Settings(),
	}
}

// Subjects

func (s *Session) Subjects() []Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.List()
}

func (s *Session) Subject(id string) (Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Get(id)
}

func (s *Session) CreateSubject(ns NewSubject) (Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.catalog.Create(ns)
	if err != nil {
		return Subject{}, err
	}
	s.ledger.Open(sub.ID)
	return sub, nil
}

// DeleteSubject removes the subject with its activities, rate and threshold.
// Its remaining coins are forfeited.
func (s *Session) DeleteSubject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.catalog.Delete(id); err != nil {
		return err
	}
	s.activities.removeSubject(id)
	s.exchange.removeSubject(id)
	s.policy.removeSubject(id)
	s.ledger.Close(id)
	return nil
}

// Activities

func (s *Session) CreateActivity(na NewActivity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities.Create(na)
}

func (s *Session) Activity(id string) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities.Get(id)
}

func (s *Session) Activities(filter ActivityFilter, orderings ...core.Ordering) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities.List(filter, orderings...)
}

func (s *Session) Submit(activityID string) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities.Submit(activityID)
}

func (s *Session) Grade(activityID string) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities.Grade(activityID)
}

func (s *Session) SetCoinReward(activityID string, reward int) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities.SetCoinReward(activityID, reward)
}

func (s *Session) ScoreActivity(activityID string, value float64, weight int) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.policy.Settings()
	return s.activities.Score(activityID, value, weight, ps.GradeMin, ps.GradeMax)
}

// Ledger

func (s *Session) Balance(subjectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance(subjectID)
}

func (s *Session) Wallet() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balances()
}

func (s *Session) TotalBalance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TotalBalance()
}

func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Entries()
}

// Exchange

func (s *Session) SetRate(subjectID string, price decimal.Decimal, points int) (Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange.SetRate(subjectID, price, points)
}

func (s *Session) Rate(subjectID string) (Rate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange.Rate(subjectID)
}

func (s *Session) Rates() []Rate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange.Rates()
}

func (s *Session) Purchase(subjectID string, points int) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange.Purchase(subjectID, points)
}

// Policy

func (s *Session) Policy() PolicySettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Settings()
}

func (s *Session) SetExpiry(days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.SetExpiry(days)
}

func (s *Session) SetThreshold(subjectID string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.SetThreshold(subjectID, value)
}

func (s *Session) SetSegregation(flag bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.SetSegregation(flag)
}

func (s *Session) SetTeachingModel(model TeachingModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.SetTeachingModel(model)
}

func (s *Session) IsExpired(earnedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.IsExpired(earnedAt, s.now())
}
