package model

import (
	"strings"
	"time"
)

// Status is the lifecycle stage of a voting event.
type Status string

// Status values. Cancellation is tracked separately on the event.
const (
	StatusProposed Status = "proposed"
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
)

// RingCount pairs a ring with the number of votes it received.
type RingCount struct {
	Ring  Ring `json:"ring"`
	Count int  `json:"count"`
}

// TagCount pairs a tag with the number of votes that carried it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// VotingResult is a frozen tally of one round for one technology.
type VotingResult struct {
	Round        int         `json:"round"`
	VotesForRing []RingCount `json:"votesForRing"`
	VotesForTag  []TagCount  `json:"votesForTag,omitempty"`
}

// Recommendation is the editorial verdict attached to a technology.
type Recommendation struct {
	Author    string    `json:"author"`
	Text      string    `json:"text,omitempty"`
	Ring      Ring      `json:"ring,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Technology is a radar entry as snapshotted into a voting event.
type Technology struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Quadrant             string          `json:"quadrant,omitempty"`
	Description          string          `json:"description,omitempty"`
	IsNew                bool            `json:"isNew,omitempty"`
	Comments             *CommentThread  `json:"comments,omitempty"`
	RecommendationAuthor string          `json:"recommendationAuthor,omitempty"`
	Recommendation       *Recommendation `json:"recommendation,omitempty"`
	VotingResult         *VotingResult   `json:"votingResult,omitempty"`
	PastResults          []VotingResult  `json:"pastResults,omitempty"`
	ForRevote            bool            `json:"forRevote,omitempty"`
	Cancelled            bool            `json:"cancelled,omitempty"`
}

// Ref returns the reference a vote keeps for this technology.
func (t Technology) Ref() TechnologyRef {
	return TechnologyRef{ID: t.ID, Name: t.Name, Quadrant: t.Quadrant}
}

// Clone returns a deep copy.
func (t Technology) Clone() Technology {
	c := t
	c.Comments = t.Comments.Clone()
	if t.Recommendation != nil {
		r := *t.Recommendation
		c.Recommendation = &r
	}
	if t.VotingResult != nil {
		r := t.VotingResult.clone()
		c.VotingResult = &r
	}
	if t.PastResults != nil {
		c.PastResults = make([]VotingResult, len(t.PastResults))
		for i, r := range t.PastResults {
			c.PastResults[i] = r.clone()
		}
	}
	return c
}

func (r VotingResult) clone() VotingResult {
	r.VotesForRing = append([]RingCount(nil), r.VotesForRing...)
	if r.VotesForTag != nil {
		r.VotesForTag = append([]TagCount(nil), r.VotesForTag...)
	}
	return r
}

// Blip is the resolved verdict for one technology.
type Blip struct {
	TechnologyID  string      `json:"technologyId,omitempty"`
	Name          string      `json:"name"`
	Quadrant      string      `json:"quadrant,omitempty"`
	Ring          Ring        `json:"ring"`
	NumberOfVotes int         `json:"numberOfVotes"`
	Votes         []RingCount `json:"votes"`
	ForRevote     bool        `json:"forRevote,omitempty"`
}

// VotingEvent is the aggregate root of a voting session.
type VotingEvent struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Status        Status       `json:"status"`
	Cancelled     bool         `json:"cancelled,omitempty"`
	Round         int          `json:"round,omitempty"`
	OpenForRevote *bool        `json:"openForRevote,omitempty"`
	Technologies  []Technology `json:"technologies,omitempty"`
	Blips         []Blip       `json:"blips,omitempty"`
	Winner        *Voter       `json:"winner,omitempty"`
	Initiative    string       `json:"initiativeName,omitempty"`
	Creator       string       `json:"creator,omitempty"`
	CreatedAt     time.Time    `json:"creationTS"`
	LastOpenedAt  *time.Time   `json:"lastOpenedTS,omitempty"`
	LastClosedAt  *time.Time   `json:"lastClosedTS,omitempty"`
	Version       int64        `json:"version"`
}

// Snapshotted reports whether technologies were captured on first open.
func (e *VotingEvent) Snapshotted() bool { return e.Round > 0 }

// TechnologyIndex returns the index of the technology with id, or -1.
func (e *VotingEvent) TechnologyIndex(id string) int {
	for i := range e.Technologies {
		if e.Technologies[i].ID == id {
			return i
		}
	}
	return -1
}

// TechnologyIndexByName matches names ignoring case and surrounding space.
func (e *VotingEvent) TechnologyIndexByName(name string) int {
	n := normalize(name)
	for i := range e.Technologies {
		if normalize(e.Technologies[i].Name) == n {
			return i
		}
	}
	return -1
}

// Skinny drops the embedded technologies and blips for listings.
func (e VotingEvent) Skinny() VotingEvent {
	e.Technologies = nil
	e.Blips = nil
	return e
}

// Clone returns a deep copy safe to mutate.
func (e VotingEvent) Clone() VotingEvent {
	c := e
	if e.OpenForRevote != nil {
		v := *e.OpenForRevote
		c.OpenForRevote = &v
	}
	if e.Technologies != nil {
		c.Technologies = make([]Technology, len(e.Technologies))
		for i, t := range e.Technologies {
			c.Technologies[i] = t.Clone()
		}
	}
	if e.Blips != nil {
		c.Blips = make([]Blip, len(e.Blips))
		for i, b := range e.Blips {
			b.Votes = append([]RingCount(nil), b.Votes...)
			c.Blips[i] = b
		}
	}
	if e.Winner != nil {
		w := *e.Winner
		c.Winner = &w
	}
	c.LastOpenedAt = cloneTime(e.LastOpenedAt)
	c.LastClosedAt = cloneTime(e.LastClosedAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SameName compares event names the way the uniqueness rule does.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
