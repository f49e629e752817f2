package simulate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/tally"
	"github.com/okian/techradar/pkg/logger"
)

// Run executes the complete simulation.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()
	c := NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout)

	log.Info(ctx, "starting radar simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("voters", cfg.Voters),
		logger.Int("workers", cfg.Workers),
		logger.Bool("revote", cfg.Revote))

	// Step 1: readiness
	if err := c.Do(ctx, http.MethodGet, "/readyz", nil, nil); err != nil {
		return stats, fmt.Errorf("service not ready: %w", err)
	}

	// Step 2: create, seed and open the event
	name := cfg.EventName
	if name == "" {
		name = "simulation " + stats.StartTime.Format("20060102_150405.000")
	}
	var ev model.VotingEvent
	if err := c.Do(ctx, http.MethodPost, "/v1/events", map[string]string{"name": name}, &ev); err != nil {
		return stats, fmt.Errorf("create event: %w", err)
	}
	stats.EventID = ev.ID
	base := "/v1/events/" + ev.ID

	if err := c.Do(ctx, http.MethodPut, base+"/technologies", map[string]any{"technologies": Technologies}, nil); err != nil {
		return stats, fmt.Errorf("set technologies: %w", err)
	}
	if err := c.Do(ctx, http.MethodPost, base+"/open", nil, &ev); err != nil {
		return stats, fmt.Errorf("open event: %w", err)
	}
	log.Info(ctx, "event opened", logger.String("eventID", ev.ID), logger.Int("round", ev.Round))

	// Step 3: vote
	subs := Generate(cfg.Seed, cfg.Voters, Technologies)
	accepted := submitAll(ctx, c, cfg, ev.ID, subs, stats)
	if len(accepted) == 0 {
		return stats, fmt.Errorf("no submission was accepted out of %d", len(subs))
	}

	// Step 4: a voter cannot vote twice in a round
	if err := resendDuplicate(ctx, c, ev.ID, accepted[0]); err != nil {
		return stats, fmt.Errorf("duplicate resend: %w", err)
	}
	stats.DuplicatesSeen++
	if err := expectVoted(ctx, c, ev.ID, accepted[0].Voter); err != nil {
		return stats, err
	}

	// Step 5: blips of round one
	round1 := votesOf(accepted, ev.Round)
	blips, err := checkBlips(ctx, c, ev.ID, tally.Blips(round1), stats)
	if err != nil {
		return stats, err
	}
	settle := tied(blips)
	stats.Tied = len(settle)

	// Step 6: optional revote of tied technologies
	if cfg.Revote && len(settle) > 0 {
		if err := c.Do(ctx, http.MethodPost, base+"/next-step", map[string]int{"round": ev.Round}, &ev); err != nil {
			return stats, fmt.Errorf("next flow step: %w", err)
		}
		stats.Mismatches = append(stats.Mismatches, compareFrozen(ev, tally.Tally(round1))...)

		second := revotes(accepted, settle)
		again := submitAll(ctx, c, cfg, ev.ID, second, stats)
		stats.Revoted = len(again)

		all := append(append([]model.Vote(nil), round1...), votesOf(again, ev.Round)...)
		if _, err := checkBlips(ctx, c, ev.ID, tally.Blips(tally.LatestRound(all, ev.Round)), stats); err != nil {
			return stats, err
		}
	}

	// Step 7: close
	if err := c.Do(ctx, http.MethodPost, base+"/close", nil, &ev); err != nil {
		return stats, fmt.Errorf("close event: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(stats.Mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d differences", ErrMismatch, len(stats.Mismatches))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// checkBlips asks the server to compute blips and compares them with want.
func checkBlips(ctx context.Context, c *Client, eventID string, want []model.Blip, stats *Stats) ([]model.Blip, error) {
	var got []model.Blip
	if err := c.Do(ctx, http.MethodPost, "/v1/events/"+eventID+"/blips", nil, &got); err != nil {
		return nil, fmt.Errorf("calculate blips: %w", err)
	}
	stats.Blips = len(got)
	for _, d := range compareBlips(got, want) {
		logger.Get().Warn(ctx, "blip mismatch", logger.String("diff", d))
		stats.Mismatches = append(stats.Mismatches, d)
	}
	return got, nil
}

func expectVoted(ctx context.Context, c *Client, eventID string, v model.Voter) error {
	q := url.Values{"firstName": {v.FirstName}, "lastName": {v.LastName}}
	var res struct {
		Voted bool `json:"voted"`
	}
	if err := c.Do(ctx, http.MethodGet, "/v1/events/"+eventID+"/has-voted?"+q.Encode(), nil, &res); err != nil {
		return fmt.Errorf("has voted: %w", err)
	}
	if !res.Voted {
		return fmt.Errorf("%w: %s %s is reported as not voted", ErrMismatch, v.FirstName, v.LastName)
	}
	return nil
}

// displayFinalStats logs the final statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var votesPerSecond float64
	if stats.Duration > 0 {
		votesPerSecond = float64(stats.VotesSaved) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.String("eventID", stats.EventID),
		logger.Int("submissions", stats.BallotsSent),
		logger.Int("votesSaved", stats.VotesSaved),
		logger.Int("rejected", stats.VotesRejected),
		logger.Int("blips", stats.Blips),
		logger.Int("tied", stats.Tied),
		logger.Int("revoted", stats.Revoted),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("votesPerSecond", votesPerSecond))
}
