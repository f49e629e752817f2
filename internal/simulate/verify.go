package simulate

import (
	"fmt"
	"maps"

	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/tally"
)

// compareBlips reports every difference between the server's blips and the
// local ones. Votes land concurrently, so ring order only matters when the
// top ring is not tied.
func compareBlips(server, local []model.Blip) []string {
	var diffs []string
	byID := make(map[string]model.Blip, len(server))
	for _, b := range server {
		byID[b.TechnologyID] = b
	}
	if len(server) != len(local) {
		diffs = append(diffs, fmt.Sprintf("blip count: server %d, local %d", len(server), len(local)))
	}

	for _, want := range local {
		got, ok := byID[want.TechnologyID]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("%s: missing on server", want.TechnologyID))
			continue
		}
		if got.NumberOfVotes != want.NumberOfVotes {
			diffs = append(diffs, fmt.Sprintf("%s: votes server %d, local %d", want.TechnologyID, got.NumberOfVotes, want.NumberOfVotes))
		}
		if !maps.Equal(ringCounts(got.Votes), ringCounts(want.Votes)) {
			diffs = append(diffs, fmt.Sprintf("%s: ring counts server %v, local %v", want.TechnologyID, got.Votes, want.Votes))
		}
		if got.ForRevote != want.ForRevote {
			diffs = append(diffs, fmt.Sprintf("%s: forRevote server %t, local %t", want.TechnologyID, got.ForRevote, want.ForRevote))
		}
		if !want.ForRevote && got.Ring != want.Ring {
			diffs = append(diffs, fmt.Sprintf("%s: ring server %s, local %s", want.TechnologyID, got.Ring, want.Ring))
		}
	}
	return diffs
}

// compareFrozen checks the results frozen into the event by the flow step.
func compareFrozen(ev model.VotingEvent, local []tally.Result) []string {
	var diffs []string
	byID := make(map[string]tally.Result, len(local))
	for _, r := range local {
		byID[r.Key] = r
	}
	for _, t := range ev.Technologies {
		want, ok := byID[t.ID]
		switch {
		case !ok && t.VotingResult == nil:
		case !ok:
			diffs = append(diffs, fmt.Sprintf("%s: frozen result without votes", t.ID))
		case t.VotingResult == nil:
			diffs = append(diffs, fmt.Sprintf("%s: no frozen result", t.ID))
		case !maps.Equal(ringCounts(t.VotingResult.VotesForRing), ringCounts(want.Rings)):
			diffs = append(diffs, fmt.Sprintf("%s: frozen rings %v, local %v", t.ID, t.VotingResult.VotesForRing, want.Rings))
		case t.ForRevote != tally.ForRevote(want.Rings):
			diffs = append(diffs, fmt.Sprintf("%s: frozen forRevote %t", t.ID, t.ForRevote))
		}
	}
	return diffs
}

func ringCounts(rcs []model.RingCount) map[model.Ring]int {
	m := make(map[model.Ring]int, len(rcs))
	for _, rc := range rcs {
		m[rc.Ring] = rc.Count
	}
	return m
}

// tied returns the ids of blips flagged for revote with the first tied ring.
func tied(blips []model.Blip) map[string]model.Ring {
	out := make(map[string]model.Ring)
	for _, b := range blips {
		if b.ForRevote {
			out[b.TechnologyID] = b.Ring
		}
	}
	return out
}

// revotes builds round-two submissions in which every voter settles each
// tied technology on the given ring.
func revotes(subs []Submission, settle map[string]model.Ring) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		r := Submission{Voter: s.Voter}
		for _, b := range s.Votes {
			ring, ok := settle[b.Technology.ID]
			if !ok {
				continue
			}
			b.Ring = ring
			b.Comment = ""
			r.Votes = append(r.Votes, b)
		}
		if len(r.Votes) > 0 {
			out = append(out, r)
		}
	}
	return out
}
