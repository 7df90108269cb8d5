// Package notify renders notification templates before the engine
// publishes them. Delivery itself is external; the engine only emits
// notification.send events carrying the rendered body.
package notify

import (
	"log"
	"sync"

	"github.com/osteele/liquid"
)

// Renderer holds named Liquid templates. Rendering is best-effort: an
// unknown template or a render error falls back to the template name so a
// notification is still emitted.
type Renderer struct {
	engine *liquid.Engine

	mu        sync.RWMutex
	templates map[string]string
}

// NewRenderer creates a renderer seeded with the built-in campaign
// notification templates.
func NewRenderer() *Renderer {
	r := &Renderer{
		engine:    liquid.NewEngine(),
		templates: make(map[string]string),
	}
	r.Register("campaign_review_started",
		"Campaign {{ campaign_id }} has ended and moved to review.")
	r.Register("campaign_activated",
		"Campaign {{ campaign_id }} is now active. Payment confirmed.")
	r.Register("campaign_completed",
		"Campaign {{ campaign_id }} completed in state {{ current_state }}.")
	return r
}

// Register adds or replaces a named template.
func (r *Renderer) Register(name, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = body
}

// Render produces the notification body for the named template with the
// given bindings. Falls back to the raw name when the template is missing
// or fails to render.
func (r *Renderer) Render(name string, data map[string]any) string {
	r.mu.RLock()
	body, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return name
	}

	out, err := r.engine.ParseAndRenderString(body, liquid.Bindings(data))
	if err != nil {
		log.Printf("[notify] render %s failed: %v", name, err)
		return name
	}
	return out
}
