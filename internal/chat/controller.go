// Package chat glues stream events into the thread repository: it decides
// when a token starts a new assistant message, tracks the ephemeral
// "thinking" status line, and gates the input with a busy flag.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"omnichat/internal/omnibot"
	"omnichat/internal/thread"
)

// Streamer is the slice of the backend client the controller needs. It is
// an interface so reconciliation can be driven by a fake in tests.
type Streamer interface {
	StreamChat(query, threadID string, handlers omnibot.StreamHandlers) (cancel func())
	MintThread(ctx context.Context) (string, error)
}

// State is everything a presentation layer needs to render: the collection
// snapshot, the active thread, the ephemeral status line and the busy flag.
type State struct {
	Threads  []thread.Thread
	ActiveID string
	Status   string
	Busy     bool
	// Citations holds the latest retrieval sources per agent for the
	// in-flight (or just finished) exchange. Transient, never persisted.
	Citations map[string][]omnibot.Citation
}

// Controller drives one submission at a time through the
// Idle -> AwaitingRoute -> Streaming -> Idle cycle.
type Controller struct {
	repo    *thread.Repository
	backend Streamer

	mu        sync.Mutex
	busy      bool
	status    string
	gotTokens bool
	citations map[string][]omnibot.Citation
	cancel    func()
	// gen increments on every submission; a handler whose generation is
	// stale belongs to a cancelled session and is ignored.
	gen uint64

	onChange func()
}

// NewController wires the repository and backend together.
func NewController(repo *thread.Repository, backend Streamer) *Controller {
	return &Controller{
		repo:      repo,
		backend:   backend,
		citations: map[string][]omnibot.Citation{},
	}
}

// SetOnChange registers the presentation callback, invoked after every
// state change. The presentation layer resynchronizes its own view; the
// controller makes no assumptions about what it does.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// State returns a render snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	cites := make(map[string][]omnibot.Citation, len(c.citations))
	for agent, list := range c.citations {
		cites[agent] = list
	}
	st := State{
		Status:    c.status,
		Busy:      c.busy,
		Citations: cites,
	}
	c.mu.Unlock()
	st.Threads = c.repo.Snapshot()
	st.ActiveID = c.repo.ActiveID()
	return st
}

// NewChat creates a thread and makes it active. The server may mint the
// identifier; if that fails the local one is used and the failure is
// ignored.
func (c *Controller) NewChat(ctx context.Context) string {
	var id string
	if minted, err := c.backend.MintThread(ctx); err == nil && minted != "" {
		id, _ = c.repo.AdoptThread(minted)
	} else {
		id, _ = c.repo.NewThread()
	}
	c.notify()
	return id
}

// Select makes a thread active.
func (c *Controller) Select(id string) {
	c.repo.SetActive(id)
	c.notify()
}

// Rename retitles a thread; empty titles are ignored by the repository.
func (c *Controller) Rename(id, title string) {
	_ = c.repo.Rename(id, title)
	c.notify()
}

// Delete removes a thread. A stream already running for it keeps going;
// its mutations become no-ops in the repository.
func (c *Controller) Delete(id string) {
	_ = c.repo.Delete(id)
	c.notify()
}

// Submit sends a query on the active thread. It reports false when the
// guard rejects it: no active thread, blank text, or a submission already
// in flight (submissions are rejected while busy, never queued).
func (c *Controller) Submit(text string) bool {
	query := strings.TrimSpace(text)

	c.mu.Lock()
	tid := c.repo.ActiveID()
	if query == "" || tid == "" || c.busy {
		c.mu.Unlock()
		return false
	}
	c.busy = true
	c.status = ""
	c.gotTokens = false
	c.citations = map[string][]omnibot.Citation{}
	c.gen++
	gen := c.gen
	prev := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	// Close any previous stream before opening the next one, so two
	// sessions can never interleave tokens into the same thread.
	if prev != nil {
		prev()
	}

	_ = c.repo.AppendMessage(tid, thread.Message{
		ID:      uuid.NewString(),
		Role:    thread.RoleUser,
		Content: query,
	})

	cancel := c.backend.StreamChat(query, tid, omnibot.StreamHandlers{
		OnRoute:     func(route string) { c.onRoute(gen, tid, route) },
		OnToken:     func(agent, token string) { c.onToken(gen, tid, token) },
		OnCitations: func(agent string, cites []omnibot.Citation) { c.onCitations(gen, agent, cites) },
		OnFinal:     func(answer string) { c.onFinal(gen, tid, answer) },
		OnError:     func(err error) { c.onError(gen) },
	})

	c.mu.Lock()
	if gen == c.gen {
		c.cancel = cancel
		cancel = nil
	}
	c.mu.Unlock()
	if cancel != nil {
		// A newer submission raced in; this session is already obsolete.
		cancel()
	}

	c.notify()
	return true
}

// Shutdown cancels any in-flight stream.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RouteStatus maps a route tag to the ephemeral status line shown between
// routing and the first output. Unknown routes have no status.
func RouteStatus(route string) string {
	switch thread.Route(route) {
	case thread.RoutePDF:
		return "BenefitsIQ agent thinking…"
	case thread.RouteClaims:
		return "Claims Assist agent thinking…"
	case thread.RouteBoth:
		return "BenefitsIQ and Claims Assist agents thinking…"
	}
	return ""
}

func (c *Controller) onRoute(gen uint64, tid, route string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.status = RouteStatus(route)
	c.mu.Unlock()

	if tag, ok := thread.KnownRoute(route); ok {
		_ = c.repo.SetRoute(tid, tag)
	}
	c.notify()
}

func (c *Controller) onToken(gen uint64, tid, token string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if !c.gotTokens {
		// First output: the "thinking" line goes away and stays away.
		c.status = ""
		c.gotTokens = true
	}
	c.mu.Unlock()

	_ = c.repo.AppendAssistantToken(tid, token)
	c.notify()
}

func (c *Controller) onCitations(gen uint64, agent string, cites []omnibot.Citation) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.citations[agent] = cites
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) onFinal(gen uint64, tid, answer string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if !c.gotTokens && answer != "" {
		// One-shot agents answer in a single final instead of tokens. The
		// append happens before busy is released so a racing submission
		// cannot slot its user message ahead of the answer.
		_ = c.repo.AppendMessage(tid, thread.Message{
			ID:      uuid.NewString(),
			Role:    thread.RoleAssistant,
			Content: answer,
		})
	}
	c.status = ""
	c.busy = false
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) onError(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	// Partial output stays: a truncated answer can still be useful.
	c.status = ""
	c.busy = false
	c.mu.Unlock()
	c.notify()
}
