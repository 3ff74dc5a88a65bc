package economy

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MaxPointsAvailable bounds the point pool of a rate.
const MaxPointsAvailable = 1_000_000_000

var maxCoins = decimal.NewFromInt(int64(math.MaxInt))

// Exchange holds per-subject rates and executes coin -> point purchases.
type Exchange struct {
	rates   map[string]*Rate
	catalog *Catalog
	ledger  *Ledger
	policy  *Policy
}

func NewExchange(catalog *Catalog, ledger *Ledger, policy *Policy) *Exchange {
	return &Exchange{
		rates:   make(map[string]*Rate),
		catalog: catalog,
		ledger:  ledger,
		policy:  policy,
	}
}

// Cost is points * price rounded half up to a whole coin, computed exactly.
// A cost no balance can hold fails with ErrInsufficientBalance.
func Cost(price decimal.Decimal, points int) (int, error) {
	// Round is half away from zero, i.e. half up for non-negative operands
	cost := decimal.NewFromInt(int64(points)).Mul(price).Round(0)
	if cost.GreaterThan(maxCoins) {
		return 0, errors.Wrapf(ErrInsufficientBalance, "cost %s coins", cost)
	}
	return int(cost.IntPart()), nil
}

// SetRate overwrites the subject rate. price must be > 0 and points within [0, MaxPointsAvailable].
func (x *Exchange) SetRate(subjectID string, price decimal.Decimal, points int) (Rate, error) {
	if !x.catalog.Exists(subjectID) {
		return Rate{}, errors.Wrapf(ErrInvalidSubject, "setting rate for %q", subjectID)
	}
	if !price.IsPositive() {
		return Rate{}, errors.Wrapf(ErrInvalidAmount, "price %s coins per point", price)
	}
	if points < 0 || points > MaxPointsAvailable {
		return Rate{}, errors.Wrapf(ErrInvalidAmount, "%d points available", points)
	}
	rate := &Rate{SubjectID: subjectID, Price: price, PointsAvailable: points}
	x.rates[subjectID] = rate
	return *rate, nil
}

func (x *Exchange) Rate(subjectID string) (Rate, bool) {
	if rate, ok := x.rates[subjectID]; ok {
		return *rate, true
	}
	return Rate{}, false
}

// Rates returns every rate ordered by subject id.
func (x *Exchange) Rates() []Rate {
	rates := make([]Rate, 0, len(x.rates))
	for _, rate := range x.rates {
		rates = append(rates, *rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].SubjectID < rates[j].SubjectID })
	return rates
}

// Purchase exchanges coins for points of subjectID.
// The point pool decrement and the ledger debit happen together or not at all.
func (x *Exchange) Purchase(subjectID string, points int) (Receipt, error) {
	if points <= 0 {
		return Receipt{}, errors.Wrapf(ErrInvalidAmount, "purchasing %d points", points)
	}
	rate, ok := x.rates[subjectID]
	if !ok {
		return Receipt{}, errors.Wrapf(ErrInvalidSubject, "no exchange rate for %q", subjectID)
	}
	if points > rate.PointsAvailable {
		return Receipt{}, errors.Wrapf(ErrInsufficientPoints, "purchasing %d of %d points", points, rate.PointsAvailable)
	}

	cost, err := Cost(rate.Price, points)
	if err != nil {
		return Receipt{}, err
	}
	plan, err := x.plan(subjectID, cost)
	if err != nil {
		return Receipt{}, err
	}

	rate.PointsAvailable -= points
	if err := x.ledger.debitAll(plan, ReasonPurchase, subjectID); err != nil {
		rate.PointsAvailable += points
		return Receipt{}, errors.Wrap(err, "debiting purchase")
	}

	paid := make(map[string]int, len(plan))
	for _, d := range plan {
		paid[d.subjectID] += d.amount
	}
	return Receipt{SubjectID: subjectID, Points: points, Cost: cost, Paid: paid}, nil
}

// plan decides which balances pay cost. With segregation only subjectID pays;
// without it the shortfall comes from the other subjects in ascending id order.
func (x *Exchange) plan(subjectID string, cost int) ([]debit, error) {
	own := x.ledger.Balance(subjectID)
	if x.policy.Settings().SegregateBySubject {
		if cost > own {
			return nil, errors.Wrapf(ErrInsufficientBalance, "cost %d coins, %q balance %d", cost, subjectID, own)
		}
		return []debit{{subjectID, cost}}, nil
	}

	if total := x.ledger.TotalBalance(); cost > total {
		return nil, errors.Wrapf(ErrInsufficientBalance, "cost %d coins, total balance %d", cost, total)
	}
	plan := make([]debit, 0, 1)
	remaining := cost
	take := func(sid string) {
		amount := x.ledger.Balance(sid)
		if amount > remaining {
			amount = remaining
		}
		if amount > 0 {
			plan = append(plan, debit{sid, amount})
			remaining -= amount
		}
	}
	take(subjectID)
	for _, sid := range x.ledger.Accounts() {
		if remaining == 0 {
			break
		}
		if sid != subjectID {
			take(sid)
		}
	}
	if cost == 0 {
		plan = append(plan, debit{subjectID, 0})
	}
	return plan, nil
}

func (x *Exchange) removeSubject(subjectID string) {
	delete(x.rates, subjectID)
}

func restoreExchange(rates []Rate, catalog *Catalog, ledger *Ledger, policy *Policy) (*Exchange, error) {
	x := NewExchange(catalog, ledger, policy)
	for _, rate := range rates {
		if _, err := x.SetRate(rate.SubjectID, rate.Price, rate.PointsAvailable); err != nil {
			return nil, errors.Wrap(err, "restoring exchange")
		}
	}
	return x, nil
}
