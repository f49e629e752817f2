// Package flow is the voting event state machine. It owns status, round
// and the revote flag. Every transition is checked against a fixed table
// before the event is touched, so a failed call leaves the event as it was.
package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/tally"
)

// Transition names an operation that depends on event state.
type Transition string

// Transitions.
const (
	Open               Transition = "open"
	Close              Transition = "close"
	CancelSoft         Transition = "cancel"
	UndoCancel         Transition = "undo_cancel"
	CancelHard         Transition = "cancel_hard"
	OpenForRevote      Transition = "open_for_revote"
	CloseForRevote     Transition = "close_for_revote"
	MoveToNextFlowStep Transition = "next_flow_step"
	AddTechnology      Transition = "add_technology"
	SetTechnologies    Transition = "set_technologies"
	AcceptVotes        Transition = "accept_votes"
	Annotate           Transition = "annotate"
)

var anyStatus = []model.Status{model.StatusProposed, model.StatusOpen, model.StatusClosed} //nolint:gochecknoglobals // fixed table

// table lists the statuses each transition is legal from.
var table = map[Transition][]model.Status{ //nolint:gochecknoglobals // fixed table
	Open:               {model.StatusProposed, model.StatusClosed},
	Close:              {model.StatusOpen},
	CancelSoft:         anyStatus,
	UndoCancel:         anyStatus,
	CancelHard:         anyStatus,
	OpenForRevote:      {model.StatusOpen},
	CloseForRevote:     anyStatus,
	MoveToNextFlowStep: {model.StatusOpen},
	AddTechnology:      anyStatus,
	SetTechnologies:    anyStatus,
	AcceptVotes:        {model.StatusOpen},
	Annotate:           anyStatus,
}

// State is the explicit lifecycle state of an event.
type State struct {
	Status    model.Status
	Round     int
	Revote    *bool
	Cancelled bool
}

// Of extracts the state of ev.
func Of(ev *model.VotingEvent) State {
	return State{Status: ev.Status, Round: ev.Round, Revote: ev.OpenForRevote, Cancelled: ev.Cancelled}
}

// Allows reports whether tr is legal from s.
func (s State) Allows(tr Transition) bool {
	if s.Cancelled && tr != UndoCancel && tr != CancelHard && tr != CancelSoft {
		return false
	}
	for _, st := range table[tr] {
		if st == s.Status {
			return true
		}
	}
	return false
}

// Check returns ErrIllegalTransition when tr is not legal for ev.
func Check(ev *model.VotingEvent, tr Transition) error {
	s := Of(ev)
	if s.Allows(tr) {
		return nil
	}
	cause := fmt.Errorf("%s not allowed from %s", tr, s.Status)
	if s.Cancelled {
		cause = fmt.Errorf("%s not allowed on a cancelled event", tr)
	}
	return model.WrapKind("flow."+string(tr), model.ErrIllegalTransition, cause)
}

// Admit checks that ev still accepts votes stamped with round. The store
// runs it against the current event while it holds the event, so a batch
// validated before a close or a round change is refused.
func Admit(ev *model.VotingEvent, round int) error {
	if ev.Cancelled {
		return model.NewKind("flow.accept_votes", model.ErrEventNotFound)
	}
	if err := Check(ev, AcceptVotes); err != nil {
		return err
	}
	if ev.Round != round {
		return model.WrapKind("flow.accept_votes", model.ErrStaleRound,
			fmt.Errorf("votes for round %d, event is at round %d", round, ev.Round))
	}
	return nil
}

// NewEvent builds a proposed event. Name uniqueness is enforced by the store.
func NewEvent(id, name, initiative, creator string, now time.Time) (model.VotingEvent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.VotingEvent{}, model.WrapKind("flow.create", model.ErrInvalidInput, errEmptyName)
	}
	return model.VotingEvent{
		ID:         id,
		Name:       name,
		Status:     model.StatusProposed,
		Initiative: initiative,
		Creator:    creator,
		CreatedAt:  now,
	}, nil
}

// DoOpen opens ev. On first open round becomes 1 and catalog is
// snapshotted into the event; later opens keep round and technologies.
func DoOpen(ev *model.VotingEvent, catalog []model.Technology, newID func() string, now time.Time) error {
	if err := Check(ev, Open); err != nil {
		return err
	}
	if ev.Round == 0 {
		ev.Round = 1
		if len(ev.Technologies) == 0 {
			ev.Technologies = assignIDs(catalog, newID)
		}
	}
	ev.Status = model.StatusOpen
	ev.LastOpenedAt = &now
	return nil
}

// DoClose closes ev. Votes are kept.
func DoClose(ev *model.VotingEvent, now time.Time) error {
	if err := Check(ev, Close); err != nil {
		return err
	}
	ev.Status = model.StatusClosed
	ev.LastClosedAt = &now
	return nil
}

// DoCancel soft-deletes ev.
func DoCancel(ev *model.VotingEvent) error {
	if err := Check(ev, CancelSoft); err != nil {
		return err
	}
	ev.Cancelled = true
	return nil
}

// DoUndoCancel reverses a soft cancel.
func DoUndoCancel(ev *model.VotingEvent) error {
	if err := Check(ev, UndoCancel); err != nil {
		return err
	}
	ev.Cancelled = false
	return nil
}

// DoOpenForRevote sets the revote flag. round must be the current round.
func DoOpenForRevote(ev *model.VotingEvent, round int) error {
	if err := Check(ev, OpenForRevote); err != nil {
		return err
	}
	if round != ev.Round {
		return model.WrapKind("flow.open_for_revote", model.ErrStaleRound,
			fmt.Errorf("round %d requested, event is at round %d", round, ev.Round))
	}
	v := true
	ev.OpenForRevote = &v
	return nil
}

// DoCloseForRevote clears the revote flag.
func DoCloseForRevote(ev *model.VotingEvent) error {
	if err := Check(ev, CloseForRevote); err != nil {
		return err
	}
	v := false
	ev.OpenForRevote = &v
	return nil
}

// DoMoveToNextFlowStep freezes the tallies of the current round into every
// technology and increments the round. expectedRound pins the round the
// caller observed; zero skips the check. votes are the event's votes in
// insertion order. A technology without votes in the current round keeps
// the result of the last round it was voted in, so repeating the step
// without new votes freezes identical tallies.
func DoMoveToNextFlowStep(ev *model.VotingEvent, expectedRound int, votes []model.Vote) error {
	if err := Check(ev, MoveToNextFlowStep); err != nil {
		return err
	}
	if expectedRound > 0 && ev.Round != expectedRound {
		return model.WrapKind("flow.next_flow_step", model.ErrStaleRound,
			fmt.Errorf("expected round %d, event is at round %d", expectedRound, ev.Round))
	}
	own := make([]model.Vote, 0, len(votes))
	for _, v := range votes {
		if v.EventID == ev.ID {
			own = append(own, v)
		}
	}
	results := tally.Tally(tally.LatestRound(own, ev.Round))
	byTech := make(map[string]tally.Result, len(results))
	for _, r := range results {
		byTech[r.Key] = r
	}
	for i := range ev.Technologies {
		t := &ev.Technologies[i]
		r, ok := byTech[t.ID]
		if !ok {
			continue
		}
		frozen := r.VotingResult()
		if t.VotingResult != nil && t.VotingResult.Round != frozen.Round {
			t.PastResults = append(t.PastResults, *t.VotingResult)
		}
		t.VotingResult = &frozen
		t.ForRevote = tally.ForRevote(frozen.VotesForRing)
	}
	ev.Round++
	return nil
}

// DoAddTechnology appends tech once the event holds a snapshot.
func DoAddTechnology(ev *model.VotingEvent, tech model.Technology, newID func() string) (model.Technology, error) {
	const op = "flow.add_technology"
	if err := Check(ev, AddTechnology); err != nil {
		return model.Technology{}, err
	}
	if !ev.Snapshotted() {
		return model.Technology{}, model.WrapKind(op, model.ErrIllegalTransition, errNotOpened)
	}
	if strings.TrimSpace(tech.Name) == "" {
		return model.Technology{}, model.WrapKind(op, model.ErrInvalidInput, errEmptyName)
	}
	if ev.TechnologyIndexByName(tech.Name) >= 0 {
		return model.Technology{}, model.WrapKind(op, model.ErrTechnologyAlreadyPresent, fmt.Errorf("%q", tech.Name))
	}
	tech.ID = newID()
	tech.IsNew = true
	ev.Technologies = append(ev.Technologies, tech)
	return tech, nil
}

// DoSetTechnologies replaces the technology list.
func DoSetTechnologies(ev *model.VotingEvent, techs []model.Technology, newID func() string) error {
	if err := Check(ev, SetTechnologies); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(techs))
	for _, t := range techs {
		k := strings.ToLower(strings.TrimSpace(t.Name))
		if k == "" {
			return model.WrapKind("flow.set_technologies", model.ErrInvalidInput, errEmptyName)
		}
		if _, dup := seen[k]; dup {
			return model.WrapKind("flow.set_technologies", model.ErrTechnologyAlreadyPresent, fmt.Errorf("%q", t.Name))
		}
		seen[k] = struct{}{}
	}
	ev.Technologies = assignIDs(techs, newID)
	return nil
}

func assignIDs(techs []model.Technology, newID func() string) []model.Technology {
	out := make([]model.Technology, len(techs))
	for i, t := range techs {
		t = t.Clone()
		if t.ID == "" {
			t.ID = newID()
		}
		out[i] = t
	}
	return out
}
