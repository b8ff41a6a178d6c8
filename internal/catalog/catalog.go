// Package catalog holds the mission definitions served by zktrails.
//
// A Catalog is immutable after construction. Callers receive copies of
// missions, and clients only ever see the redacted MissionView and
// QuestionView projections.
package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a mission id is not in the catalog.
var ErrNotFound = errors.New("mission not found")

// Catalog is an ordered, read-only set of missions.
type Catalog struct {
	version  string
	missions []Mission
	index    map[string]int
}

// New builds a catalog, validating every mission and rejecting duplicate ids.
func New(version string, missions []Mission) (*Catalog, error) {
	c := &Catalog{
		version:  version,
		missions: make([]Mission, 0, len(missions)),
		index:    make(map[string]int, len(missions)),
	}
	for i := range missions {
		m := missions[i].clone()
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidMission, m.ID)
		}
		c.index[m.ID] = len(c.missions)
		c.missions = append(c.missions, m)
	}
	return c, nil
}

// Version returns the catalog version.
func (c *Catalog) Version() string {
	return c.version
}

// Get returns a copy of the mission with the given id.
func (c *Catalog) Get(id string) (*Mission, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	m := c.missions[i].clone()
	return &m, nil
}

// List returns all missions in insertion order.
func (c *Catalog) List() []Mission {
	out := make([]Mission, len(c.missions))
	for i, m := range c.missions {
		out[i] = m.clone()
	}
	return out
}

// Len returns the number of missions.
func (c *Catalog) Len() int {
	return len(c.missions)
}

// Views returns the client projection of every mission in insertion order.
func (c *Catalog) Views() []MissionView {
	out := make([]MissionView, len(c.missions))
	for i := range c.missions {
		out[i] = NewMissionView(&c.missions[i])
	}
	return out
}

// View returns the client projection of one mission.
func (c *Catalog) View(id string) (MissionView, error) {
	i, ok := c.index[id]
	if !ok {
		return MissionView{}, ErrNotFound
	}
	return NewMissionView(&c.missions[i]), nil
}

// ErrNotQuiz is returned when questions are requested for a non-quiz mission.
var ErrNotQuiz = errors.New("mission is not a quiz")

// Questions returns the quiz questions of a mission without answer keys.
func (c *Catalog) Questions(id string) ([]QuestionView, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	m := &c.missions[i]
	if m.Method != MethodQuiz {
		return nil, ErrNotQuiz
	}
	out := make([]QuestionView, len(m.Quiz.Questions))
	for j, q := range m.Quiz.Questions {
		out[j] = NewQuestionView(q)
	}
	return out, nil
}
