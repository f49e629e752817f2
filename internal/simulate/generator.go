package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/techradar/internal/domain/model"
)

// Technologies is the catalog every simulated event votes on.
var Technologies = []model.Technology{
	{ID: "go", Name: "Go", Quadrant: "languages-and-frameworks"},
	{ID: "rust", Name: "Rust", Quadrant: "languages-and-frameworks"},
	{ID: "kafka", Name: "Kafka", Quadrant: "platforms"},
	{ID: "argo-cd", Name: "Argo CD", Quadrant: "tools"},
	{ID: "pair-programming", Name: "Pair programming", Quadrant: "techniques"},
}

var (
	rings = []model.Ring{model.RingAdopt, model.RingTrial, model.RingAssess, model.RingHold}
	tags  = []string{"fast", "mature", "hype", "costly", "simple"}
)

// Ballot is one vote as sent over the wire.
type Ballot struct {
	Technology struct {
		ID string `json:"id"`
	} `json:"technology"`
	Ring    model.Ring `json:"ring"`
	Tags    []string   `json:"tags,omitempty"`
	Comment string     `json:"comment,omitempty"`
}

// Submission is the full body of one voter's request.
type Submission struct {
	Voter model.Voter `json:"voter"`
	Votes []Ballot    `json:"votes"`
}

// Generate builds one submission per voter with a ballot for every
// technology. Each voter leans towards a ring per technology so that
// results are skewed rather than uniform.
func Generate(seed uint64, voters int, techs []model.Technology) []Submission {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // test data

	lean := make([]int, len(techs))
	for i := range lean {
		lean[i] = rnd.IntN(len(rings))
	}

	subs := make([]Submission, voters)
	for v := range subs {
		s := Submission{Voter: model.Voter{FirstName: fmt.Sprintf("Voter%d", v), LastName: "Sim"}}
		for i, t := range techs {
			var b Ballot
			b.Technology.ID = t.ID
			b.Ring = rings[lean[i]]
			if rnd.IntN(3) == 0 {
				b.Ring = rings[rnd.IntN(len(rings))]
			}
			for _, tag := range tags {
				if rnd.IntN(4) == 0 {
					b.Tags = append(b.Tags, tag)
				}
			}
			if rnd.IntN(5) == 0 {
				b.Comment = fmt.Sprintf("%s looks %s to me", t.Name, b.Ring)
			}
			s.Votes = append(s.Votes, b)
		}
		subs[v] = s
	}
	return subs
}

// votesOf converts accepted submissions into votes of round for the local tally.
func votesOf(subs []Submission, round int) []model.Vote {
	out := make([]model.Vote, 0, len(subs)*len(Technologies))
	for _, s := range subs {
		for _, b := range s.Votes {
			out = append(out, model.Vote{
				Technology: model.TechnologyRef{ID: b.Technology.ID},
				Ring:       b.Ring,
				Tags:       b.Tags,
				Voter:      s.Voter,
				EventRound: round,
			})
		}
	}
	return out
}
