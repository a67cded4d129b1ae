package thread

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Saver persists the full thread collection. The repository is the only
// writer; it saves after every mutation.
type Saver interface {
	Save(threads []Thread) error
}

// Repository is the in-memory collection of conversation threads and the
// single source of truth rendered by the UI. All operations apply to the
// latest state under one lock, so a stale caller can never clobber a
// concurrent rename or delete. Mutations targeting an id that no longer
// exists are silent no-ops: the user may delete a thread while a stream for
// it is still in flight.
type Repository struct {
	mu       sync.Mutex
	threads  []Thread
	activeID string
	saver    Saver

	// now is swappable for tests.
	now func() int64
}

// NewRepository builds a repository over an initial collection, typically
// store.Load()'s result. The newest thread (first in the list) becomes
// active, mirroring the original client's startup behavior.
func NewRepository(saver Saver, initial []Thread) *Repository {
	r := &Repository{
		threads: initial,
		saver:   saver,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
	if len(initial) > 0 {
		r.activeID = initial[0].ID
	}
	return r
}

// NewThread inserts a fresh thread at the front of the list and makes it
// active. Returns the generated id.
func (r *Repository) NewThread() (string, error) {
	return r.insertThread(uuid.NewString())
}

// AdoptThread is NewThread with a server-minted id.
func (r *Repository) AdoptThread(id string) (string, error) {
	if id == "" {
		return r.NewThread()
	}
	return r.insertThread(id)
}

func (r *Repository) insertThread(id string) (string, error) {
	r.mu.Lock()
	now := r.now()
	t := Thread{
		ID:        id,
		Title:     PlaceholderTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
	r.threads = append([]Thread{t}, r.threads...)
	r.activeID = id
	err := r.save()
	r.mu.Unlock()
	return id, err
}

// Rename replaces a thread's title. A title that is empty after trimming
// is a no-op.
func (r *Repository) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return r.update(id, func(t *Thread) {
		t.Title = title
	})
}

// Delete removes a thread. If it was active, the new first thread (if any)
// becomes active.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.threads[:0]
	found := false
	for _, t := range r.threads {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return nil
	}
	r.threads = kept
	if r.activeID == id {
		if len(r.threads) > 0 {
			r.activeID = r.threads[0].ID
		} else {
			r.activeID = ""
		}
	}
	return r.save()
}

// SetActive points the active-thread marker at id. Unknown ids are ignored.
func (r *Repository) SetActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.threads {
		if t.ID == id {
			r.activeID = id
			return
		}
	}
}

// SetRoute records the most recent routing decision on a thread.
func (r *Repository) SetRoute(id string, route Route) error {
	return r.update(id, func(t *Thread) {
		t.LastRoute = route
	})
}

// AppendMessage appends msg to a thread. The first user message of a
// fresh thread also becomes its title.
func (r *Repository) AppendMessage(id string, msg Message) error {
	return r.update(id, func(t *Thread) {
		t.Title = deriveTitle(t.Title, msg)
		t.Messages = append(t.Messages, msg)
	})
}

// AppendAssistantToken folds one streamed token into a thread: it extends
// the trailing assistant message, or starts one if the log is empty or ends
// with a user message.
func (r *Repository) AppendAssistantToken(id, token string) error {
	return r.update(id, func(t *Thread) {
		t.Messages = foldAssistantToken(t.Messages, uuid.NewString, token)
	})
}

// update runs fn against the matching thread, bumps UpdatedAt and saves.
// A missing id leaves the collection untouched.
func (r *Repository) update(id string, fn func(*Thread)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.threads {
		if r.threads[i].ID != id {
			continue
		}
		fn(&r.threads[i])
		if now := r.now(); now > r.threads[i].UpdatedAt {
			r.threads[i].UpdatedAt = now
		}
		return r.save()
	}
	return nil
}

// save persists the current collection. Must be called with the lock held.
func (r *Repository) save() error {
	if r.saver == nil {
		return nil
	}
	return r.saver.Save(r.snapshotLocked())
}

// ActiveID returns the id of the active thread, or "" when there is none.
func (r *Repository) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Active returns a copy of the active thread, or false when there is none.
func (r *Repository) Active() (Thread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.threads {
		if t.ID == r.activeID {
			return copyThread(t), true
		}
	}
	return Thread{}, false
}

// Snapshot returns a deep copy of the collection for rendering.
func (r *Repository) Snapshot() []Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Repository) snapshotLocked() []Thread {
	out := make([]Thread, len(r.threads))
	for i, t := range r.threads {
		out[i] = copyThread(t)
	}
	return out
}

func copyThread(t Thread) Thread {
	msgs := make([]Message, len(t.Messages))
	copy(msgs, t.Messages)
	t.Messages = msgs
	return t
}
