// Package simulate drives a running radar server through a complete voting
// event over HTTP and checks the blips it computes against a local tally.
package simulate

import (
	"fmt"
	"time"
)

// Config holds the simulation parameters.
type Config struct {
	BaseURL   string        // Base URL of the service
	EventName string        // Empty means a timestamped name
	Voters    int           // Number of distinct voters
	Workers   int           // Concurrent vote submitters
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Ballot generator seed
	Revote    bool          // Move to the next round and revote tied technologies
	Token     string        // Bearer token sent as the event creator
	Verbose   bool
}

// Validate checks the parameters before anything is sent.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrConfig)
	case c.Voters < 1:
		return fmt.Errorf("%w: voters must be positive", ErrConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrConfig)
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	EventID        string
	BallotsSent    int
	VotesSaved     int
	VotesRejected  int
	DuplicatesSeen int
	Blips          int
	Tied           int
	Revoted        int
	Mismatches     []string
	StartTime      time.Time
	Duration       time.Duration
}
