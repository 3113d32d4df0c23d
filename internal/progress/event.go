package progress

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRunDone    Stage = "RUN_DONE"
	StageChunkStart Stage = "CHUNK_START"
	StageChunkDone  Stage = "CHUNK_DONE"
	StageVerdict    Stage = "VERDICT"
)

// Event captures a single milestone of a sweep run.
type Event struct {
	// RunID identifies the sweep run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Site is the host label of URL, used for metric labels.
	Site string
	// URL is the classified URL for verdict events.
	URL string
	// Chunk is the chunk index for chunk events.
	Chunk int
	// Count carries the number of URLs for run and chunk events.
	Count int
	// Verdict and Reason are set on verdict events.
	Verdict sweep.Verdict
	Reason  sweep.Reason
	// Dur captures the time spent on a URL, chunk, or run.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageChunkStart, StageChunkDone:
	case StageVerdict:
		if e.URL == "" {
			return errors.New("verdict requires url")
		}
		if e.Verdict != sweep.Alive && e.Verdict != sweep.Dead {
			return fmt.Errorf("unknown verdict %q", e.Verdict)
		}
		if e.Reason == "" {
			return errors.New("verdict requires reason")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// SiteOf returns a lower-cased host label for rawURL, or "unknown".
func SiteOf(rawURL string) string {
	u, err := url.Parse(sweep.EnsureScheme(rawURL))
	if err != nil {
		return "unknown"
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if host == "" {
		return "unknown"
	}
	return host
}
