package chat

import (
	"context"
	"strings"
	"time"
)

// DefaultTokenInterval is the pause after each revealed word.
const DefaultTokenInterval = 50 * time.Millisecond

// Frame is one step of a reply. Text is everything visible so far; the last
// frame has Done set and carries the full answer.
type Frame struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Frames returns the reveal of full: one frame per space-separated word, each
// holding the growing prefix, then the terminal frame.
func Frames(full string) []Frame {
	words := strings.Split(full, " ")
	frames := make([]Frame, 0, len(words)+1)

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		frames = append(frames, Frame{Text: b.String()})
	}
	return append(frames, Frame{Text: full, Done: true})
}

// Replayer paces frames so a complete answer reads as if it were streamed.
type Replayer struct {
	sleep    func(ctx context.Context, d time.Duration) error
	interval time.Duration
}

// NewReplayer creates a Replayer. A non-positive interval uses DefaultTokenInterval.
func NewReplayer(interval time.Duration) *Replayer {
	if interval <= 0 {
		interval = DefaultTokenInterval
	}
	return &Replayer{interval: interval, sleep: sleepCtx}
}

// Interval returns the pause between words.
func (r *Replayer) Interval() time.Duration {
	return r.interval
}

// Replay calls emit for every frame of full, pausing after each word. The
// terminal frame is always emitted, even when ctx ends early.
func (r *Replayer) Replay(ctx context.Context, full string, emit func(Frame)) {
	frames := Frames(full)
	last := frames[len(frames)-1]

	for _, f := range frames[:len(frames)-1] {
		emit(f)
		if err := r.sleep(ctx, r.interval); err != nil {
			break
		}
	}
	emit(last)
}

// Fail emits the fallback text as a single frame followed by the terminal frame.
func Fail(text string, emit func(Frame)) {
	emit(Frame{Text: text})
	emit(Frame{Text: text, Done: true})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
