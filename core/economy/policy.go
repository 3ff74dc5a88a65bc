package economy

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

type TeachingModel string

const (
	ModelFundamental TeachingModel = "fundamental"
	ModelMedio       TeachingModel = "medio"
	ModelTecnico     TeachingModel = "tecnico"
	ModelCustom      TeachingModel = "personalizado"
)

var TeachingModels = []TeachingModel{ModelFundamental, ModelMedio, ModelTecnico, ModelCustom}

// PolicySettings are the administrator controlled settings of a session.
type PolicySettings struct {
	ExpiryDays         int                `json:"expiry_days"`
	MinThreshold       map[string]float64 `json:"min_threshold"`
	SegregateBySubject bool               `json:"segregate_by_subject"`
	TeachingModel      TeachingModel      `json:"teaching_model"`
	GradeMin           float64            `json:"grade_min"`
	GradeMax           float64            `json:"grade_max"`
}

func (ps PolicySettings) copy() PolicySettings {
	c := ps
	c.MinThreshold = make(map[string]float64, len(ps.MinThreshold))
	for sid, v := range ps.MinThreshold {
		c.MinThreshold[sid] = v
	}
	return c
}

// Policy validates and stores PolicySettings. Thresholds reference catalog subjects.
type Policy struct {
	settings PolicySettings
	catalog  *Catalog
}

func NewPolicy(catalog *Catalog, opts Options) *Policy {
	return &Policy{
		settings: PolicySettings{
			ExpiryDays:         opts.ExpiryDays,
			MinThreshold:       make(map[string]float64),
			SegregateBySubject: opts.Segregate,
			TeachingModel:      ModelMedio,
			GradeMin:           opts.GradeMin,
			GradeMax:           opts.GradeMax,
		},
		catalog: catalog,
	}
}

func (p *Policy) Settings() PolicySettings { return p.settings.copy() }

func (p *Policy) SetExpiry(days int) error {
	if days < 0 {
		return errors.Wrapf(ErrInvalidAmount, "expiry of %d days", days)
	}
	p.settings.ExpiryDays = days
	return nil
}

func (p *Policy) SetThreshold(subjectID string, value float64) error {
	if !p.catalog.Exists(subjectID) {
		return errors.Wrapf(ErrInvalidSubject, "setting threshold for %q", subjectID)
	}
	if math.IsNaN(value) || value < p.settings.GradeMin || value > p.settings.GradeMax {
		return errors.Wrapf(ErrInvalidAmount, "threshold %v outside [%v, %v]", value, p.settings.GradeMin, p.settings.GradeMax)
	}
	p.settings.MinThreshold[subjectID] = value
	return nil
}

func (p *Policy) SetSegregation(flag bool) {
	p.settings.SegregateBySubject = flag
}

func (p *Policy) SetTeachingModel(model TeachingModel) error {
	for _, m := range TeachingModels {
		if m == model {
			p.settings.TeachingModel = model
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidAmount, "unknown teaching model %q", model)
}

func (p *Policy) Threshold(subjectID string) (float64, bool) {
	v, ok := p.settings.MinThreshold[subjectID]
	return v, ok
}

// Passes reports whether average meets the subject threshold; ok is false without one.
func (p *Policy) Passes(subjectID string, average float64) (passes, ok bool) {
	v, ok := p.Threshold(subjectID)
	if !ok {
		return false, false
	}
	return average >= v, true
}

func (p *Policy) IsExpired(earnedAt, now time.Time) bool {
	return IsExpired(p.settings.ExpiryDays, earnedAt, now)
}

func (p *Policy) removeSubject(subjectID string) {
	delete(p.settings.MinThreshold, subjectID)
}

// IsExpired reports whether coins earned at earnedAt are past an expiry window of days.
// A window of 0 days never expires.
func IsExpired(days int, earnedAt, now time.Time) bool {
	if days <= 0 {
		return false
	}
	return !now.Before(ExpiresAt(days, earnedAt))
}

func ExpiresAt(days int, earnedAt time.Time) time.Time {
	return earnedAt.Add(time.Duration(days) * 24 * time.Hour)
}

func restorePolicy(ps PolicySettings, catalog *Catalog) (*Policy, error) {
	p := &Policy{settings: ps.copy(), catalog: catalog}
	if ps.ExpiryDays < 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "restoring policy: expiry of %d days", ps.ExpiryDays)
	}
	if math.IsNaN(ps.GradeMin) || math.IsNaN(ps.GradeMax) || ps.GradeMin > ps.GradeMax {
		return nil, errors.Wrapf(ErrInvalidAmount, "restoring policy: grade range [%v, %v]", ps.GradeMin, ps.GradeMax)
	}
	for sid, v := range ps.MinThreshold {
		if !catalog.Exists(sid) {
			return nil, errors.Wrapf(ErrInvalidSubject, "restoring policy threshold %q", sid)
		}
		if math.IsNaN(v) || v < ps.GradeMin || v > ps.GradeMax {
			return nil, errors.Wrapf(ErrInvalidAmount, "restoring policy: threshold %v of %q outside [%v, %v]", v, sid, ps.GradeMin, ps.GradeMax)
		}
	}
	if p.settings.TeachingModel == "" {
		p.settings.TeachingModel = ModelMedio
	}
	return p, nil
}
