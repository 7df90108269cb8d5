package workflow

import (
	"context"
	"log"
	"time"

	"github.com/ignite/campaign-engine/internal/domain"
)

// Start launches the automation scheduler: a periodic tick that evaluates
// every schedule-triggered rule against every workflow. Runs until Stop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ctx, e.cancel = context.WithCancel(context.Background())
	ctx := e.ctx
	e.mu.Unlock()

	go func() {
		log.Printf("[workflow] scheduler started (interval=%s)", e.tickInterval)
		ticker := time.NewTicker(e.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[workflow] scheduler stopped")
				return
			case <-ticker.C:
				e.tick(ctx)
			}
		}
	}()
}

// Stop halts the scheduler. In-memory state is untouched.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.running = false
}

// tick runs one scheduler pass. When a distributed lock is configured the
// pass is skipped unless this instance wins the lock, so only one replica
// evaluates schedule rules per period.
func (e *Engine) tick(ctx context.Context) {
	if e.schedLock != nil {
		ok, err := e.schedLock.Acquire(ctx)
		if err != nil {
			log.Printf("[workflow] scheduler lock error: %v", err)
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := e.schedLock.Release(ctx); err != nil {
				log.Printf("[workflow] scheduler unlock error: %v", err)
			}
		}()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, w := range e.workflows {
		for _, r := range e.rules {
			if !r.Enabled || r.Trigger != domain.TriggerSchedule {
				continue
			}
			if e.conditionsMatchLocked(r, w) {
				e.executeRuleLocked(ctx, r, w)
			}
		}
	}
}
