package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
)

// Rule is the fixed window applied to one operation class.
type Rule struct {
	Window time.Duration
	Max    int
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed           bool
	Limit             int
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int
}

type entryKey struct {
	class  enums.OperationClass
	userID string
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter throttles callers per (operation class, user) in process memory.
// Counts are lost on restart and are not shared between instances.
type Limiter struct {
	mu      sync.Mutex
	rules   map[enums.OperationClass]Rule
	entries map[entryKey]*entry
	now     func() time.Time
	logg    *logger.Logger

	sweepInterval time.Duration
	sweepMu       sync.Mutex
	done          chan struct{}
	wg            sync.WaitGroup
}

// Params configures a Limiter. Now defaults to time.Now.
type Params struct {
	Rules         map[enums.OperationClass]Rule
	SweepInterval time.Duration
	Now           func() time.Time
	Logger        *logger.Logger
}

func New(params Params) *Limiter {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	rules := make(map[enums.OperationClass]Rule, len(params.Rules))
	for class, rule := range params.Rules {
		rules[class] = rule
	}
	interval := params.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Limiter{
		rules:         rules,
		entries:       make(map[entryKey]*entry),
		now:           now,
		logg:          params.Logger,
		sweepInterval: interval,
	}
}

// RulesFromConfig maps the configured windows onto operation classes.
func RulesFromConfig(cfg config.RateLimitConfig) map[enums.OperationClass]Rule {
	return map[enums.OperationClass]Rule{
		enums.OperationClassContentGeneration: {Window: cfg.GenerationWindow, Max: cfg.GenerationMax},
		enums.OperationClassVoiceCloning:      {Window: cfg.VoiceCloningWindow, Max: cfg.VoiceCloningMax},
		enums.OperationClassVideoGeneration:   {Window: cfg.VideoWindow, Max: cfg.VideoMax},
		enums.OperationClassTextToSpeech:      {Window: cfg.TextToSpeechWindow, Max: cfg.TextToSpeechMax},
	}
}

// Admit counts one request against the caller's window. A denied request
// still increments the counter. Unknown classes and empty user ids are admitted.
func (l *Limiter) Admit(class enums.OperationClass, userID string) Decision {
	rule, ok := l.rules[class]
	if userID == "" || !ok || rule.Max <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true, Limit: rule.Max, Remaining: rule.Max}
	}

	now := l.now()
	key := entryKey{class: class, userID: userID}

	l.mu.Lock()
	e, found := l.entries[key]
	if !found || now.After(e.resetAt) {
		e = &entry{resetAt: now.Add(rule.Window)}
		l.entries[key] = e
	}
	e.count++
	count := e.count
	resetAt := e.resetAt
	l.mu.Unlock()

	remaining := rule.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:           count <= rule.Max,
		Limit:             rule.Max,
		Remaining:         remaining,
		ResetAt:           resetAt,
		RetryAfterSeconds: secondsUntil(now, resetAt),
	}
}

func secondsUntil(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// Sweep drops every entry whose window has elapsed and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartSweeper launches the background sweep loop. Calling it twice is a no-op.
func (l *Limiter) StartSweeper(ctx context.Context) {
	l.sweepMu.Lock()
	defer l.sweepMu.Unlock()
	if l.done != nil {
		return
	}
	done := make(chan struct{})
	l.done = done
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if removed := l.Sweep(); removed > 0 && l.logg != nil {
					l.logg.Debug(l.logg.WithField(ctx, "removed", removed), "ratelimit.sweep")
				}
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit.
func (l *Limiter) Stop() {
	l.sweepMu.Lock()
	done := l.done
	l.done = nil
	l.sweepMu.Unlock()
	if done == nil {
		return
	}
	close(done)
	l.wg.Wait()
}
