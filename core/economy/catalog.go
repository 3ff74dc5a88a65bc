package economy

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/coinsforstudy/coins/core"
)

var (
	subjectMaxSim = .9

	errSubjectIDExists   = "a subject with this id already exists"
	errSubjectNameExists = "a subject with this name already exists"
	errSubjectNameSim    = "a subject with a similar name already exists"
)

// Catalog holds the subjects, in creation order.
type Catalog struct {
	subjects map[string]*Subject
	order    []string
}

func NewCatalog() *Catalog {
	return &Catalog{subjects: make(map[string]*Subject)}
}

func (c *Catalog) Exists(id string) bool {
	_, ok := c.subjects[id]
	return ok
}

func (c *Catalog) Get(id string) (Subject, error) {
	if sub, ok := c.subjects[id]; ok {
		return *sub, nil
	}
	return Subject{}, errors.Wrapf(ErrNotFound, "subject %q", id)
}

func (c *Catalog) List() []Subject {
	subjects := make([]Subject, 0, len(c.order))
	for _, id := range c.order {
		subjects = append(subjects, *c.subjects[id])
	}
	return subjects
}

// Create adds a subject. Names are unique ignoring case, and a name too similar to an
// existing one (e.g. differing by an accent) is rejected.
func (c *Catalog) Create(ns NewSubject) (Subject, error) {
	name := core.CleanString(ns.Name)
	if name == "" {
		return Subject{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if err := c.checkName(name); err != nil {
		return Subject{}, err
	}

	id := core.CleanString(ns.ID)
	if id == "" {
		id = c.nextID(name)
	} else if c.Exists(id) {
		return Subject{}, core.NewValidationError(nil, core.FieldError{Field: "id", Error: errSubjectIDExists})
	}

	sub := &Subject{ID: id, Name: name}
	c.subjects[id] = sub
	c.order = append(c.order, id)
	return *sub, nil
}

func (c *Catalog) checkName(name string) error {
	lname := strings.ToLower(name)
	for _, sub := range c.subjects {
		other := strings.ToLower(sub.Name)
		if other == lname {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: errSubjectNameExists})
		}
		ratio := difflib.NewMatcher(strings.Split(lname, ""), strings.Split(other, "")).Ratio()
		if ratio >= subjectMaxSim {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: errSubjectNameSim})
		}
	}
	return nil
}

// nextID derives an id from the first three letters of name and the subject count.
func (c *Catalog) nextID(name string) string {
	prefix := []rune(strings.ToLower(strings.Join(strings.Fields(name), "")))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	for n := len(c.order); ; n++ {
		id := string(prefix) + strconv.Itoa(n)
		if !c.Exists(id) {
			return id
		}
	}
}

func (c *Catalog) Delete(id string) error {
	if !c.Exists(id) {
		return errors.Wrapf(ErrNotFound, "subject %q", id)
	}
	delete(c.subjects, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func restoreCatalog(subjects []Subject) (*Catalog, error) {
	c := NewCatalog()
	for _, sub := range subjects {
		if sub.ID == "" || c.Exists(sub.ID) {
			return nil, errors.Wrapf(ErrInvalidSubject, "restoring catalog: bad subject id %q", sub.ID)
		}
		s := sub
		c.subjects[s.ID] = &s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}
