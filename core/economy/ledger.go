package economy

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"
)

type EntryReason string

const (
	ReasonOpening    EntryReason = "opening"
	ReasonAdjustment EntryReason = "adjustment"
	ReasonActivity   EntryReason = "activity"
	ReasonPurchase   EntryReason = "purchase"
	ReasonForfeit    EntryReason = "forfeit"
)

// Entry is one posted movement. Balances are always the replay of the entry log.
type Entry struct {
	Seq       int         `json:"seq"`
	SubjectID string      `json:"subject_id"`
	Kind      EntryKind   `json:"kind"`
	Amount    int         `json:"amount"`
	Reason    EntryReason `json:"reason"`
	Ref       string      `json:"ref,omitempty"`
	At        time.Time   `json:"at"`
}

// Lot is a batch of earned coins still unspent, oldest first.
type Lot struct {
	Amount   int       `json:"amount"`
	EarnedAt time.Time `json:"earned_at"`
}

// Ledger keeps per-subject coin balances. Only open accounts can be credited;
// balances never go negative.
type Ledger struct {
	balances map[string]int
	entries  []Entry
	now      func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		balances: make(map[string]int),
		now:      now,
	}
}

// Open starts an account for subjectID with a zero balance. Opening twice is a no-op.
func (l *Ledger) Open(subjectID string) {
	if _, ok := l.balances[subjectID]; !ok {
		l.balances[subjectID] = 0
	}
}

func (l *Ledger) IsOpen(subjectID string) bool {
	_, ok := l.balances[subjectID]
	return ok
}

// Close writes off the remaining balance with a forfeit entry and closes the account.
// It returns the forfeited amount.
func (l *Ledger) Close(subjectID string) int {
	bal, ok := l.balances[subjectID]
	if !ok {
		return 0
	}
	if bal > 0 {
		l.post(subjectID, EntryDebit, bal, ReasonForfeit, "")
	}
	delete(l.balances, subjectID)
	return bal
}

func (l *Ledger) Credit(subjectID string, amount int) error {
	return l.credit(subjectID, amount, ReasonAdjustment, "")
}

func (l *Ledger) Debit(subjectID string, amount int) error {
	return l.debit(subjectID, amount, ReasonAdjustment, "")
}

func (l *Ledger) credit(subjectID string, amount int, reason EntryReason, ref string) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "crediting %d coins", amount)
	}
	if !l.IsOpen(subjectID) {
		return errors.Wrapf(ErrInvalidAmount, "crediting unknown subject %q", subjectID)
	}
	// every balance is part of the total, so bounding the total bounds them all
	if total := l.TotalBalance(); amount > math.MaxInt-total {
		return errors.Wrapf(ErrInvalidAmount, "crediting %d coins on top of %d", amount, total)
	}
	if amount > 0 {
		l.post(subjectID, EntryCredit, amount, reason, ref)
	}
	return nil
}

func (l *Ledger) debit(subjectID string, amount int, reason EntryReason, ref string) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "debiting %d coins", amount)
	}
	if bal := l.balances[subjectID]; amount > bal {
		return errors.Wrapf(ErrInsufficientBalance, "debiting %d coins from %q (balance %d)", amount, subjectID, bal)
	}
	if amount > 0 {
		l.post(subjectID, EntryDebit, amount, reason, ref)
	}
	return nil
}

// debitAll applies every debit in plan or none of them.
func (l *Ledger) debitAll(plan []debit, reason EntryReason, ref string) error {
	need := make(map[string]int, len(plan))
	for _, d := range plan {
		if d.amount < 0 {
			return errors.Wrapf(ErrInvalidAmount, "debiting %d coins", d.amount)
		}
		need[d.subjectID] += d.amount
	}
	for sid, amount := range need {
		if bal := l.balances[sid]; amount > bal {
			return errors.Wrapf(ErrInsufficientBalance, "debiting %d coins from %q (balance %d)", amount, sid, bal)
		}
	}
	for _, d := range plan {
		if d.amount > 0 {
			l.post(d.subjectID, EntryDebit, d.amount, reason, ref)
		}
	}
	return nil
}

type debit struct {
	subjectID string
	amount    int
}

func (l *Ledger) post(subjectID string, kind EntryKind, amount int, reason EntryReason, ref string) {
	if kind == EntryCredit {
		l.balances[subjectID] += amount
	} else {
		l.balances[subjectID] -= amount
	}
	l.entries = append(l.entries, Entry{
		Seq:       len(l.entries) + 1,
		SubjectID: subjectID,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		Ref:       ref,
		At:        l.now().UTC(),
	})
}

// Balance returns 0 for subjects without an account.
func (l *Ledger) Balance(subjectID string) int {
	return l.balances[subjectID]
}

func (l *Ledger) Balances() map[string]int {
	bals := make(map[string]int, len(l.balances))
	for sid, bal := range l.balances {
		bals[sid] = bal
	}
	return bals
}

func (l *Ledger) TotalBalance() int {
	var total int
	for _, bal := range l.balances {
		total += bal
	}
	return total
}

func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *Ledger) Accounts() []string {
	ids := make([]string, 0, len(l.balances))
	for sid := range l.balances {
		ids = append(ids, sid)
	}
	sort.Strings(ids)
	return ids
}

// Lots returns the unspent earned coins of subjectID, oldest first.
// Debits consume the oldest lots first.
func (l *Ledger) Lots(subjectID string) []Lot {
	var lots []Lot
	for _, e := range l.entries {
		if e.SubjectID != subjectID {
			continue
		}
		if e.Kind == EntryCredit {
			lots = append(lots, Lot{Amount: e.Amount, EarnedAt: e.At})
			continue
		}
		remaining := e.Amount
		for remaining > 0 && len(lots) > 0 {
			if lots[0].Amount > remaining {
				lots[0].Amount -= remaining
				remaining = 0
			} else {
				remaining -= lots[0].Amount
				lots = lots[1:]
			}
		}
	}
	return lots
}

// Replay recomputes balances from an entry log.
func Replay(entries []Entry) map[string]int {
	bals := make(map[string]int)
	for _, e := range entries {
		switch e.Kind {
		case EntryCredit:
			bals[e.SubjectID] += e.Amount
		case EntryDebit:
			bals[e.SubjectID] -= e.Amount
		}
	}
	return bals
}

func restoreLedger(accounts []string, entries []Entry, now func() time.Time) (*Ledger, error) {
	var total int
	for _, e := range entries {
		if e.Amount < 0 {
			return nil, errors.Wrapf(ErrInvalidAmount, "replaying ledger: entry %d moves %d coins", e.Seq, e.Amount)
		}
		switch e.Kind {
		case EntryCredit:
			if e.Amount > math.MaxInt-total {
				return nil, errors.Wrapf(ErrInvalidAmount, "replaying ledger: entry %d overflows the total balance", e.Seq)
			}
			total += e.Amount
		case EntryDebit:
			if total -= e.Amount; total < 0 {
				return nil, errors.Wrapf(ErrInvalidAmount, "replaying ledger: entry %d leaves a negative total balance", e.Seq)
			}
		}
	}

	l := NewLedger(now)
	for _, sid := range accounts {
		l.Open(sid)
	}
	for sid, bal := range Replay(entries) {
		if bal < 0 {
			return nil, errors.Wrapf(ErrInvalidAmount, "replaying ledger: negative balance %d for %q", bal, sid)
		}
		if !l.IsOpen(sid) {
			if bal != 0 {
				return nil, errors.Wrapf(ErrInvalidSubject, "replaying ledger: closed account %q holds %d coins", sid, bal)
			}
			continue
		}
		l.balances[sid] = bal
	}
	l.entries = append(l.entries, entries...)
	return l, nil
}
