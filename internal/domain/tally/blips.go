package tally

import "github.com/okian/techradar/internal/domain/model"

// Resolve turns tallies into blips in the order technologies first
// appeared. Technologies without votes produce no blip.
func Resolve(results []Result) []model.Blip {
	blips := make([]model.Blip, 0, len(results))
	for _, r := range results {
		if r.Total == 0 || len(r.Rings) == 0 {
			continue
		}
		blips = append(blips, model.Blip{
			TechnologyID:  r.Technology.ID,
			Name:          r.Technology.Name,
			Quadrant:      r.Technology.Quadrant,
			Ring:          r.Rings[0].Ring,
			NumberOfVotes: r.Total,
			Votes:         append([]model.RingCount(nil), r.Rings...),
			ForRevote:     ForRevote(r.Rings),
		})
	}
	return blips
}

// ForRevote reports a tie at the top of rings, which must be sorted by
// count descending. Any number of rings sharing the maximum counts.
func ForRevote(rings []model.RingCount) bool {
	return len(rings) > 1 && rings[0].Count == rings[1].Count
}

// Blips tallies votes of one event and resolves them.
func Blips(votes []model.Vote, opts ...Option) []model.Blip {
	return Resolve(Tally(votes, opts...))
}

// MergedBlips merges votes of many events by technology name before resolving.
func MergedBlips(votes []model.Vote) []model.Blip {
	blips := Resolve(Tally(votes, WithKey(ByTechnologyName)))
	for i := range blips {
		blips[i].TechnologyID = ""
	}
	return blips
}
