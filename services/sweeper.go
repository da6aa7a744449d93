package services

import (
	"context"
	"log"
	"time"
)

// RunSweeper periodically closes votes that stayed open longer than voteTimeout
// and resumes bots that stopped on the turn cap. It returns when ctx is done.
func (s *GameService) RunSweeper(ctx context.Context, interval, voteTimeout time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Starting session sweeper: every %s, vote timeout %s", interval, voteTimeout)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(ctx, voteTimeout); n > 0 {
				log.Printf("Sweeper advanced %d sessions", n)
			}
		}
	}
}

// Sweep runs one pass over every running session and returns how many moved on.
// A zero voteTimeout leaves open votes alone.
func (s *GameService) Sweep(ctx context.Context, voteTimeout time.Duration) int {
	advanced := 0
	for _, id := range s.controller.Registry().IDs() {
		if voteTimeout > 0 {
			out, err := s.controller.ExpireVote(id, voteTimeout)
			if err != nil {
				continue
			}
			if out != nil {
				s.commit(ctx, out)
				advanced++
				continue
			}
		}

		out, err := s.controller.Nudge(id)
		if err != nil || out == nil {
			continue
		}
		s.commit(ctx, out)
		advanced++
	}
	return advanced
}
