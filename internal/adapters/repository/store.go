// Package repository defines the vote, event and technology catalog store
// contracts and their in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/techradar/internal/domain/model"
)

// VoteFilter selects votes. Zero fields do not filter.
type VoteFilter struct {
	EventID      string
	EventIDs     []string
	TechnologyID string
	Round        int
}

// Match reports whether v passes the filter.
func (f VoteFilter) Match(v model.Vote) bool {
	if f.EventID != "" && v.EventID != f.EventID {
		return false
	}
	if len(f.EventIDs) > 0 && !contains(f.EventIDs, v.EventID) {
		return false
	}
	if f.TechnologyID != "" && v.Technology.ID != f.TechnologyID {
		return false
	}
	if f.Round > 0 && v.EventRound != f.Round {
		return false
	}
	return true
}

// EventQuery controls event listings.
type EventQuery struct {
	// Full keeps embedded technologies and blips.
	Full bool
	// IncludeCancelled lists soft-cancelled events too.
	IncludeCancelled bool
}

// AdmitFunc inspects the stored event a vote batch belongs to. It runs
// while the store holds the event against concurrent updates; an error
// refuses the batch unchanged.
type AdmitFunc func(ev model.VotingEvent) error

// VoteStore persists votes.
type VoteStore interface {
	// InsertVotes stores all votes of event eventID or none, assigning Seq
	// in input order. admit, when set, vets the current event first. An
	// admitted batch bumps the event version, so a transition computed
	// from an older vote set loses its compare-and-set. A uniqueness
	// collision on Vote.UniqueKey fails with model.ErrDuplicateVote.
	InsertVotes(ctx context.Context, eventID string, admit AdmitFunc, votes []model.Vote) ([]model.Vote, error)

	// Votes returns matching votes in insertion order.
	Votes(ctx context.Context, f VoteFilter) ([]model.Vote, error)

	// MutateVote applies fn to the stored vote atomically and persists the result.
	// Returns model.ErrVoteNotFound when id is unknown.
	MutateVote(ctx context.Context, id string, fn func(v *model.Vote) error) (model.Vote, error)

	// DeleteVotes removes every vote of an event, bumps the event version
	// and returns how many went. Returns model.ErrEventNotFound.
	DeleteVotes(ctx context.Context, eventID string) (int, error)
}

// EventStore persists voting event documents.
type EventStore interface {
	// InsertEvent stores a new event with version 1. Fails with
	// model.ErrDuplicateEventName when a live event has the same name.
	InsertEvent(ctx context.Context, ev model.VotingEvent) (model.VotingEvent, error)

	// Event fetches by id, cancelled or not. Returns model.ErrEventNotFound.
	Event(ctx context.Context, id string) (model.VotingEvent, error)

	// UpdateEvent replaces the document when its stored version equals
	// expectedVersion and bumps the version. A mismatch fails with ErrVersionConflict.
	UpdateEvent(ctx context.Context, ev model.VotingEvent, expectedVersion int64) (model.VotingEvent, error)

	// DeleteEvent removes the event and all its votes.
	DeleteEvent(ctx context.Context, id string) error

	// Events lists events in creation order.
	Events(ctx context.Context, q EventQuery) ([]model.VotingEvent, error)
}

// TechnologyQuery controls catalog listings.
type TechnologyQuery struct {
	// IncludeCancelled lists soft-cancelled entries too.
	IncludeCancelled bool
}

// CatalogStore persists the technology catalog events snapshot on first open.
type CatalogStore interface {
	// InsertTechnology stores a new entry. Fails with
	// model.ErrTechnologyAlreadyPresent when a live entry has the same name.
	InsertTechnology(ctx context.Context, t model.Technology) (model.Technology, error)

	// Technology fetches by id, cancelled or not. Returns model.ErrTechnologyNotPresent.
	Technology(ctx context.Context, id string) (model.Technology, error)

	// Technologies lists entries in insertion order.
	Technologies(ctx context.Context, q TechnologyQuery) ([]model.Technology, error)

	// MutateTechnology applies fn to the stored entry atomically and keeps
	// its id. A rename or restore onto a live name fails with
	// model.ErrTechnologyAlreadyPresent.
	MutateTechnology(ctx context.Context, id string, fn func(t *model.Technology) error) (model.Technology, error)

	// DeleteTechnology removes an entry. Returns model.ErrTechnologyNotPresent.
	DeleteTechnology(ctx context.Context, id string) error

	// ReplaceTechnologies swaps the whole catalog for techs and returns how
	// many were stored. Repeated live names fail like InsertTechnology and
	// leave the catalog as it was.
	ReplaceTechnologies(ctx context.Context, techs []model.Technology) (int, error)
}

// Store bundles the contracts with lifecycle hooks.
type Store interface {
	VoteStore
	EventStore
	CatalogStore
	Ping(ctx context.Context) error
	Close() error
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
