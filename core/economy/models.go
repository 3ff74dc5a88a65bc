package economy

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/coinsforstudy/coins/core"
)

const dateLayout = "2006-01-02"

// Date is a calendar day, encoded as "2006-01-02".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		if t, tErr := time.Parse(time.RFC3339, s); tErr == nil {
			*d = Date{t.UTC().Truncate(24 * time.Hour)}
			return nil
		}
		return err
	}
	*d = parsed
	return nil
}

type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewSubject contains information needed to create a new Subject.
// ID is derived from Name when empty.
type NewSubject struct {
	ID   string `json:"id" validate:"omitempty,max=32,alphanum_"`
	Name string `json:"name" validate:"required,notblank,max=80"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// Status of an Activity: pending -> submitted -> graded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
)

// Score is the grade a teacher attached to a graded Activity.
type Score struct {
	Value  float64 `json:"value"`
	Weight int     `json:"weight"`
}

type Activity struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	Title       string     `json:"title"`
	Deadline    Date       `json:"deadline"`
	CoinReward  int        `json:"coin_reward"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
	Score       *Score     `json:"score,omitempty"`
}

// NewActivity contains information needed to create a new Activity.
type NewActivity struct {
	ID         string `json:"id" validate:"omitempty,max=64"`
	SubjectID  string `json:"subject_id" validate:"required"`
	Title      string `json:"title" validate:"required,notblank,max=200"`
	Deadline   Date   `json:"deadline"`
	CoinReward int    `json:"coin_reward" validate:"min=0,max=1000000"`
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.ID = core.CleanString(na.ID)
	na.SubjectID = core.CleanString(na.SubjectID)
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

type ActivityFilter struct {
	SubjectID string `query:"subject"`
	Status    Status `query:"status"`
}

func (f ActivityFilter) match(act *Activity) bool {
	if f.SubjectID != "" && act.SubjectID != f.SubjectID {
		return false
	}
	if f.Status != "" && act.Status != f.Status {
		return false
	}
	return true
}

// Rate is a subject's exchange rate and remaining point pool.
type Rate struct {
	SubjectID       string          `json:"subject_id"`
	Price           decimal.Decimal `json:"price_coins_per_point"`
	PointsAvailable int             `json:"points_available"`
}

// Receipt describes a completed purchase. Paid lists the coins debited per subject;
// it only spans several subjects when segregation is off.
type Receipt struct {
	SubjectID string         `json:"subject_id"`
	Points    int            `json:"points"`
	Cost      int            `json:"cost"`
	Paid      map[string]int `json:"paid"`
}
