package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewDemoSession returns a session seeded with the dashboard's demo data.
func NewDemoSession(opts Options) (*Session, error) {
	opts = opts.normalized()
	at := opts.Now().UTC()
	graded := at

	opening := func(seq int, sid string, amount int) Entry {
		return Entry{Seq: seq, SubjectID: sid, Kind: EntryCredit, Amount: amount, Reason: ReasonOpening, At: at}
	}
	state := State{
		Subjects: []Subject{
			{ID: "mat", Name: "Matematica"},
			{ID: "por", Name: "Portugues"},
			{ID: "his", Name: "Historia"},
			{ID: "bio", Name: "Biologia"},
		},
		Accounts: []string{"bio", "his", "mat", "por"},
		Entries: []Entry{
			opening(1, "mat", 18),
			opening(2, "his", 12),
			opening(3, "bio", 24),
			opening(4, "por", 6),
		},
		Activities: []Activity{
			{ID: "a1", SubjectID: "mat", Title: "Revisao - Funcoes", Deadline: NewDate(2025, time.October, 1), CoinReward: 10, Status: StatusPending, CreatedAt: at},
			{ID: "a2", SubjectID: "his", Title: "Resumo - Era Vargas", Deadline: NewDate(2025, time.October, 3), CoinReward: 8, Status: StatusSubmitted, CreatedAt: at, SubmittedAt: &at},
			{ID: "a3", SubjectID: "bio", Title: "Quiz - Genetica", Deadline: NewDate(2025, time.October, 7), CoinReward: 12, Status: StatusGraded, CreatedAt: at, SubmittedAt: &at, GradedAt: &graded, Score: &Score{Value: 9.1, Weight: 2}},
		},
		Rates: []Rate{
			{SubjectID: "mat", Price: decimal.NewFromInt(5), PointsAvailable: 100},
			{SubjectID: "his", Price: decimal.NewFromInt(3), PointsAvailable: 80},
			{SubjectID: "bio", Price: decimal.NewFromInt(4), PointsAvailable: 60},
			{SubjectID: "por", Price: decimal.NewFromInt(2), PointsAvailable: 40},
		},
		Policy: PolicySettings{
			ExpiryDays:         30,
			MinThreshold:       map[string]float64{"mat": 7, "his": 6, "bio": 7, "por": 6},
			SegregateBySubject: true,
			TeachingModel:      ModelMedio,
			GradeMin:           opts.GradeMin,
			GradeMax:           opts.GradeMax,
		},
	}
	return RestoreSession(state, opts)
}
