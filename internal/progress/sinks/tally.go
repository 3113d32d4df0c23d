package sinks

import (
	"context"
	"sync"

	"github.com/JakeFAU/soft404-sweeper/internal/progress"
	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Tally is a point-in-time count of verdicts.
type Tally struct {
	Alive    int
	Dead     int
	ByReason map[sweep.Reason]int
}

// Total is the number of URLs that received a verdict.
func (t Tally) Total() int {
	return t.Alive + t.Dead
}

// TallySink collapses verdict events into counters for the run summary.
type TallySink struct {
	mu    sync.Mutex
	tally Tally
}

// NewTallySink returns an empty TallySink.
func NewTallySink() *TallySink {
	return &TallySink{tally: Tally{ByReason: make(map[sweep.Reason]int)}}
}

// Consume counts the verdict events in batch.
func (s *TallySink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		if evt.Stage != progress.StageVerdict {
			continue
		}
		if evt.Verdict == sweep.Alive {
			s.tally.Alive++
		} else {
			s.tally.Dead++
		}
		s.tally.ByReason[evt.Reason]++
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *TallySink) Close(context.Context) error {
	return nil
}

// Snapshot returns a copy of the current counts.
func (s *TallySink) Snapshot() Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Tally{
		Alive:    s.tally.Alive,
		Dead:     s.tally.Dead,
		ByReason: make(map[sweep.Reason]int, len(s.tally.ByReason)),
	}
	for reason, n := range s.tally.ByReason {
		out.ByReason[reason] = n
	}
	return out
}
