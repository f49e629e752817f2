package model

import (
	"strconv"
	"time"
)

// TechnologyRef is the slice of a technology a vote keeps.
type TechnologyRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quadrant string `json:"quadrant,omitempty"`
}

// Vote is one voter's ring assignment for one technology in one round.
type Vote struct {
	ID         string         `json:"id"`
	EventID    string         `json:"eventId"`
	EventName  string         `json:"eventName,omitempty"`
	EventRound int            `json:"eventRound"`
	Technology TechnologyRef  `json:"technology"`
	Ring       Ring           `json:"ring"`
	Tags       []string       `json:"tags,omitempty"`
	Comment    *CommentThread `json:"comment,omitempty"`
	Voter      Voter          `json:"voter"`
	VoterKey   string         `json:"-"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	// Seq is the store-assigned insertion order used by every tally.
	Seq int64 `json:"-"`
}

// UniqueKey is the identity the store enforces: one vote per voter,
// technology, event and round.
func (v Vote) UniqueKey() string {
	return v.EventID + "/" + strconv.Itoa(v.EventRound) + "/" + v.Technology.ID + "/" + v.VoterKey
}

// Clone returns a deep copy.
func (v Vote) Clone() Vote {
	c := v
	if v.Tags != nil {
		c.Tags = append([]string(nil), v.Tags...)
	}
	c.Comment = v.Comment.Clone()
	return c
}
