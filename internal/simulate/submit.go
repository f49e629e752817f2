package simulate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
)

// submitAll posts every submission through a pool of workers and returns
// the ones the server accepted, in input order.
func submitAll(ctx context.Context, c *Client, cfg *Config, eventID string, subs []Submission, stats *Stats) []Submission {
	path := "/v1/events/" + eventID + "/votes"

	var (
		saved    int64
		rejected int64
		wg       sync.WaitGroup
	)
	ok := make([]bool, len(subs))
	jobs := make(chan int, cfg.Workers*2)

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				var votes []model.Vote
				err := c.Do(ctx, http.MethodPost, path, subs[i], &votes)
				if err != nil {
					atomic.AddInt64(&rejected, 1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "submission rejected",
							logger.String("voter", subs[i].Voter.FirstName), logger.Error(err))
					}
					continue
				}
				ok[i] = true
				atomic.AddInt64(&saved, int64(len(votes)))
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.BallotsSent += len(subs)
	stats.VotesSaved += int(saved)
	stats.VotesRejected += int(rejected)

	accepted := make([]Submission, 0, len(subs))
	for i, s := range subs {
		if ok[i] {
			accepted = append(accepted, s)
		}
	}
	return accepted
}

// resendDuplicate resends an accepted submission and expects a conflict.
func resendDuplicate(ctx context.Context, c *Client, eventID string, sub Submission) error {
	err := c.Do(ctx, http.MethodPost, "/v1/events/"+eventID+"/votes", sub, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict && se.Code == model.Code(model.ErrDuplicateVote) {
		return nil
	}
	if err == nil {
		return errors.New("duplicate submission was accepted")
	}
	return err
}
