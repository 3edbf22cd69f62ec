package segments

import (
	"strings"
	"sync"
	"time"
)

// AssemblerConfig tunes utterance assembly from streaming transcripts.
type AssemblerConfig struct {
	MinLen       int
	MaxChars     int
	FlushTimeout time.Duration
}

func (c AssemblerConfig) withDefaults() AssemblerConfig {
	if c.MinLen <= 0 {
		c.MinLen = 2
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 1024
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 1500 * time.Millisecond
	}
	return c
}

// Assembler folds streaming partial transcripts into complete utterances.
// Streaming recognizers emit words or phrases as they stabilize; the
// pipeline wants one segment per spoken sentence.
type Assembler struct {
	mu       sync.Mutex
	cfg      AssemblerConfig
	sb       strings.Builder
	language string
	first    time.Time
	lastAt   time.Time
}

func NewAssembler(cfg AssemblerConfig) *Assembler {
	return &Assembler{cfg: cfg.withDefaults()}
}

// Add folds one transcript piece. It returns a completed segment when the
// utterance closes: the recognizer marked it final, sentence punctuation
// appeared, or the buffer hit MaxChars.
func (a *Assembler) Add(text, language string, final bool) (Segment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sb.Len() == 0 {
		a.first = time.Now()
		a.language = language
	}
	if a.sb.Len() > 0 && !strings.HasPrefix(text, " ") {
		a.sb.WriteString(" ")
	}
	a.sb.WriteString(text)
	a.lastAt = time.Now()

	buffered := a.sb.String()
	if final || eosDetected(buffered) || len(buffered) >= a.cfg.MaxChars {
		return a.takeLocked()
	}
	return Segment{}, false
}

// FlushIfIdle releases the buffer when no piece arrived within the flush
// timeout, so a trailing half-sentence is not held forever.
func (a *Assembler) FlushIfIdle() (Segment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sb.Len() == 0 || time.Since(a.lastAt) <= a.cfg.FlushTimeout {
		return Segment{}, false
	}
	return a.takeLocked()
}

// Flush drains whatever is buffered regardless of completeness.
func (a *Assembler) Flush() (Segment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.takeLocked()
}

func (a *Assembler) takeLocked() (Segment, bool) {
	out := strings.TrimSpace(a.sb.String())
	a.sb.Reset()
	if len(out) < a.cfg.MinLen {
		return Segment{}, false
	}
	seg := Segment{Text: out, Language: a.language, At: a.first}
	a.language = ""
	a.first = time.Time{}
	return seg, true
}

func eosDetected(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) == 0 {
		return false
	}
	if strings.HasSuffix(t, "...") {
		return len(t) >= 12
	}
	last := t[len(t)-1]
	return last == '.' || last == '!' || last == '?' || last == '\n'
}
