// Package tally turns raw votes into per-technology ring and tag counts
// and resolves those counts into blips.
package tally

import (
	"sort"
	"strings"

	"github.com/okian/techradar/internal/domain/model"
)

// Key selects the technology identity votes are grouped by.
type Key func(v model.Vote) string

// ByTechnologyID groups votes of a single event.
func ByTechnologyID(v model.Vote) string { return v.Technology.ID }

// ByTechnologyName groups votes across events; same-named technologies
// are treated as one entity.
func ByTechnologyName(v model.Vote) string {
	return strings.ToLower(strings.TrimSpace(v.Technology.Name))
}

// Result is the tally of one technology.
type Result struct {
	Key        string              `json:"key"`
	Technology model.TechnologyRef `json:"technology"`
	// Round is the highest event round among the counted votes.
	Round int               `json:"round"`
	Total int               `json:"total"`
	Rings []model.RingCount `json:"votesForRing"`
	// Tags is nil when no counted vote carried a tag.
	Tags []model.TagCount `json:"votesForTag,omitempty"`
}

// Option applies a configuration option to a tally run.
type Option func(*options)

type options struct {
	key   Key
	round int
}

// WithKey sets the grouping key. Defaults to ByTechnologyID.
func WithKey(k Key) Option {
	return func(o *options) {
		if k != nil {
			o.key = k
		}
	}
}

// WithRound restricts the tally to votes cast in round. Zero means all rounds.
func WithRound(round int) Option {
	return func(o *options) {
		if round > 0 {
			o.round = round
		}
	}
}

// Tally counts rings and tags per technology. Votes must be in insertion
// order: technologies, rings and tags keep their first-seen order on ties.
func Tally(votes []model.Vote, opts ...Option) []Result {
	o := options{key: ByTechnologyID}
	for _, opt := range opts {
		opt(&o)
	}

	techs := newCounter[string]()
	type acc struct {
		ref   model.TechnologyRef
		round int
		rings *counter[model.Ring]
		tags  *counter[string]
	}
	accs := make(map[string]*acc)

	for _, v := range votes {
		if o.round > 0 && v.EventRound != o.round {
			continue
		}
		k := o.key(v)
		techs.add(k)
		a, ok := accs[k]
		if !ok {
			a = &acc{ref: v.Technology, rings: newCounter[model.Ring](), tags: newCounter[string]()}
			accs[k] = a
		}
		if v.EventRound > a.round {
			a.round = v.EventRound
		}
		a.rings.add(v.Ring)
		for _, tag := range v.Tags {
			a.tags.add(tag)
		}
	}

	out := make([]Result, 0, len(techs.keys))
	for i, k := range techs.keys {
		a := accs[k]
		r := Result{Key: k, Technology: a.ref, Round: a.round, Total: techs.counts[i]}
		for _, e := range a.rings.sorted() {
			r.Rings = append(r.Rings, model.RingCount{Ring: e.key, Count: e.count})
		}
		for _, e := range a.tags.sorted() {
			r.Tags = append(r.Tags, model.TagCount{Tag: e.key, Count: e.count})
		}
		out = append(out, r)
	}
	return out
}

// VotingResult freezes r as the result of its round.
func (r Result) VotingResult() model.VotingResult {
	return model.VotingResult{Round: r.Round, VotesForRing: r.Rings, VotesForTag: r.Tags}
}

// LatestRound keeps, for every technology, only the votes of the most
// recent round (not after upTo) in which it received any vote. Order is kept.
func LatestRound(votes []model.Vote, upTo int) []model.Vote {
	latest := make(map[string]int)
	for _, v := range votes {
		if upTo > 0 && v.EventRound > upTo {
			continue
		}
		if v.EventRound > latest[v.Technology.ID] {
			latest[v.Technology.ID] = v.EventRound
		}
	}
	out := make([]model.Vote, 0, len(votes))
	for _, v := range votes {
		if r, ok := latest[v.Technology.ID]; ok && v.EventRound == r {
			out = append(out, v)
		}
	}
	return out
}

// counter counts keys and remembers first-seen order.
type counter[K comparable] struct {
	idx    map[K]int
	keys   []K
	counts []int
}

type entry[K comparable] struct {
	key   K
	count int
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{idx: make(map[K]int)}
}

func (c *counter[K]) add(k K) {
	i, ok := c.idx[k]
	if !ok {
		i = len(c.keys)
		c.idx[k] = i
		c.keys = append(c.keys, k)
		c.counts = append(c.counts, 0)
	}
	c.counts[i]++
}

// sorted returns entries by count descending; equal counts keep first-seen order.
func (c *counter[K]) sorted() []entry[K] {
	if len(c.keys) == 0 {
		return nil
	}
	out := make([]entry[K], len(c.keys))
	for i, k := range c.keys {
		out[i] = entry[K]{key: k, count: c.counts[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}
