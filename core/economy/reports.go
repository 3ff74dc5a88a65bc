package economy

import (
	"net/mail"
	"time"

	"github.com/coinsforstudy/coins/core"
)

type SubjectExpiry struct {
	SubjectID    string     `json:"subject_id"`
	SubjectName  string     `json:"subject_name"`
	Balance      int        `json:"balance"`
	Expired      int        `json:"expired"`
	NextExpiring int        `json:"next_expiring"`
	NextExpiry   *time.Time `json:"next_expiry,omitempty"` // nil when nothing is due to expire
}

// ExpiryReport is advisory: expired coins stay spendable, nothing sweeps them.
type ExpiryReport struct {
	Now        time.Time       `json:"now"`
	ExpiryDays int             `json:"expiry_days"`
	Subjects   []SubjectExpiry `json:"subjects"`
}

// ExpiringSoon reports whether any subject has coins expired or expiring before now+within.
func (r ExpiryReport) ExpiringSoon(within time.Duration) bool {
	for _, sub := range r.Subjects {
		if sub.Expired > 0 || (sub.NextExpiry != nil && sub.NextExpiry.Before(r.Now.Add(within))) {
			return true
		}
	}
	return false
}

// ExpiryReport derives, per subject with a balance, how many coins are past the expiry
// window at now and when the next batch expires.
func (s *Session) ExpiryReport(now time.Time) ExpiryReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := s.policy.Settings().ExpiryDays
	report := ExpiryReport{Now: now.UTC(), ExpiryDays: days, Subjects: make([]SubjectExpiry, 0)}
	for _, sub := range s.catalog.List() {
		se := SubjectExpiry{SubjectID: sub.ID, SubjectName: sub.Name, Balance: s.ledger.Balance(sub.ID)}
		if se.Balance == 0 {
			continue
		}
		if days > 0 {
			for _, lot := range s.ledger.Lots(sub.ID) {
				if IsExpired(days, lot.EarnedAt, now) {
					se.Expired += lot.Amount
					continue
				}
				expiresAt := ExpiresAt(days, lot.EarnedAt).UTC()
				switch {
				case se.NextExpiry == nil || expiresAt.Before(*se.NextExpiry):
					se.NextExpiry = &expiresAt
					se.NextExpiring = lot.Amount
				case expiresAt.Equal(*se.NextExpiry):
					se.NextExpiring += lot.Amount
				}
			}
		}
		report.Subjects = append(report.Subjects, se)
	}
	return report
}

// ExpiryNotice is the data of the "expiry_notice" email template.
type ExpiryNotice struct {
	ExpiryReport
	Name    string
	AppName string
}

// NewExpiryNotice addresses the expiry notice of report to each recipient.
func NewExpiryNotice(report ExpiryReport, appName string, to ...mail.Address) []*core.EmailMessage {
	messages := make([]*core.EmailMessage, 0, len(to))
	for _, addr := range to {
		name := addr.Name
		if name == "" {
			name = addr.Address
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{addr},
			Subject:      "Your coins are about to expire",
			TemplateName: "expiry_notice",
			TemplateData: ExpiryNotice{ExpiryReport: report, Name: name, AppName: appName},
		})
	}
	return messages
}

type Standing struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	Scored      int      `json:"scored"`
	Average     float64  `json:"average"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Passing     *bool    `json:"passing,omitempty"`
}

// Standings computes, per subject, the weight-averaged score of its scored activities
// and whether it meets the minimum threshold. Subjects without scores have no verdict.
func (s *Session) Standings() []Standing {
	s.mu.Lock()
	defer s.mu.Unlock()

	standings := make([]Standing, 0, len(s.catalog.order))
	for _, sub := range s.catalog.List() {
		st := Standing{SubjectID: sub.ID, SubjectName: sub.Name}
		var sum float64
		var weights int
		for _, act := range s.activities.List(ActivityFilter{SubjectID: sub.ID}) {
			if act.Score == nil {
				continue
			}
			st.Scored++
			sum += act.Score.Value * float64(act.Score.Weight)
			weights += act.Score.Weight
		}
		if v, ok := s.policy.Threshold(sub.ID); ok {
			st.Threshold = &v
		}
		if weights > 0 {
			st.Average = sum / float64(weights)
			if passes, ok := s.policy.Passes(sub.ID, st.Average); ok {
				st.Passing = &passes
			}
		}
		standings = append(standings, st)
	}
	return standings
}
