package thread

import (
	"strings"
	"testing"
)

func TestAppendAssistantTokenConcatenates(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, err := r.NewThread()
	if err != nil {
		t.Fatalf("new thread: %v", err)
	}

	for _, tok := range []string{"A", "B", "C"} {
		if err := r.AppendAssistantToken(tid, tok); err != nil {
			t.Fatalf("append token %q: %v", tok, err)
		}
	}

	th, ok := r.Active()
	if !ok {
		t.Fatalf("expected active thread")
	}
	if len(th.Messages) != 1 {
		t.Fatalf("expected exactly one assistant message, got %d", len(th.Messages))
	}
	if th.Messages[0].Role != RoleAssistant {
		t.Fatalf("expected assistant role, got %q", th.Messages[0].Role)
	}
	if th.Messages[0].Content != "ABC" {
		t.Fatalf("expected content ABC, got %q", th.Messages[0].Content)
	}
}

func TestAppendAssistantTokenAfterUserMessageStartsNewMessage(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	if err := r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("append message: %v", err)
	}
	if err := r.AppendAssistantToken(tid, "hi"); err != nil {
		t.Fatalf("append token: %v", err)
	}

	th, _ := r.Active()
	if len(th.Messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(th.Messages))
	}
	if th.Messages[0].Content != "hello" {
		t.Fatalf("user message mutated: %q", th.Messages[0].Content)
	}
	if th.Messages[1].Role != RoleAssistant || th.Messages[1].Content != "hi" {
		t.Fatalf("unexpected assistant message: %+v", th.Messages[1])
	}
}

func TestAppendAssistantTokenNeverTouchesEarlierMessages(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: "first"})
	r.AppendAssistantToken(tid, "one")
	r.AppendMessage(tid, Message{ID: "u2", Role: RoleUser, Content: "second"})
	r.AppendAssistantToken(tid, "two")
	r.AppendAssistantToken(tid, " more")

	th, _ := r.Active()
	if len(th.Messages) != 4 {
		t.Fatalf("expected four messages, got %d", len(th.Messages))
	}
	if th.Messages[1].Content != "one" {
		t.Fatalf("earlier assistant message mutated: %q", th.Messages[1].Content)
	}
	if th.Messages[3].Content != "two more" {
		t.Fatalf("expected trailing message to accumulate, got %q", th.Messages[3].Content)
	}
}

func TestTitleDerivedFromFirstUserMessage(t *testing.T) {
	long := "What is my deductible for 2024 benefits plan coverage details extended"
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: long})

	th, _ := r.Active()
	want := string([]rune(long)[:48])
	if th.Title != want {
		t.Fatalf("expected title %q, got %q", want, th.Title)
	}
	if len([]rune(th.Title)) != 48 {
		t.Fatalf("expected 48-rune title, got %d", len([]rune(th.Title)))
	}

	// Later user messages never retitle.
	r.AppendMessage(tid, Message{ID: "u2", Role: RoleUser, Content: "something else entirely"})
	th, _ = r.Active()
	if th.Title != want {
		t.Fatalf("title changed on second message: %q", th.Title)
	}
}

func TestEmptyFirstUserMessageKeepsPlaceholder(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: ""})

	th, _ := r.Active()
	if th.Title != PlaceholderTitle {
		t.Fatalf("expected placeholder title, got %q", th.Title)
	}
}

func TestAssistantMessageNeverSetsTitle(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	r.AppendMessage(tid, Message{ID: "a1", Role: RoleAssistant, Content: "unprompted greeting"})

	th, _ := r.Active()
	if th.Title != PlaceholderTitle {
		t.Fatalf("expected placeholder title, got %q", th.Title)
	}
}

func TestDeleteActiveThreadFallsBackToFirst(t *testing.T) {
	r := NewRepository(nil, nil)
	first, _ := r.NewThread()
	second, _ := r.NewThread() // newest, now active and at the front

	if r.ActiveID() != second {
		t.Fatalf("expected %s active, got %s", second, r.ActiveID())
	}

	r.Delete(second)
	if r.ActiveID() != first {
		t.Fatalf("expected fallback to %s, got %s", first, r.ActiveID())
	}

	r.Delete(first)
	if r.ActiveID() != "" {
		t.Fatalf("expected no active thread, got %s", r.ActiveID())
	}
	if len(r.Snapshot()) != 0 {
		t.Fatalf("expected empty collection")
	}
}

func TestDeleteNonActiveThreadKeepsActive(t *testing.T) {
	r := NewRepository(nil, nil)
	older, _ := r.NewThread()
	newer, _ := r.NewThread()

	r.Delete(older)
	if r.ActiveID() != newer {
		t.Fatalf("active changed on non-active delete: %s", r.ActiveID())
	}
}

func TestMutationsOnUnknownIDAreNoOps(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()
	r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: "hello"})
	before := r.Snapshot()

	r.Rename("missing", "nope")
	r.SetRoute("missing", RoutePDF)
	r.AppendMessage("missing", Message{ID: "x", Role: RoleUser, Content: "x"})
	r.AppendAssistantToken("missing", "x")
	r.Delete("missing")
	r.SetActive("missing")

	after := r.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("collection length changed")
	}
	if after[0].Title != before[0].Title || len(after[0].Messages) != len(before[0].Messages) {
		t.Fatalf("collection mutated by unknown-id operations")
	}
	if r.ActiveID() != tid {
		t.Fatalf("active changed by unknown-id SetActive")
	}
}

func TestRenameTrimsAndRejectsEmpty(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	r.Rename(tid, "   ")
	th, _ := r.Active()
	if th.Title != PlaceholderTitle {
		t.Fatalf("blank rename applied: %q", th.Title)
	}

	r.Rename(tid, "  Claims questions  ")
	th, _ = r.Active()
	if th.Title != "Claims questions" {
		t.Fatalf("expected trimmed title, got %q", th.Title)
	}
}

func TestSetRouteRecordsTag(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()

	r.SetRoute(tid, RouteBoth)
	th, _ := r.Active()
	if th.LastRoute != RouteBoth {
		t.Fatalf("expected route both, got %q", th.LastRoute)
	}
}

func TestUpdatedAtNeverDecreases(t *testing.T) {
	r := NewRepository(nil, nil)
	clock := int64(1000)
	r.now = func() int64 { return clock }

	tid, _ := r.NewThread()
	clock = 2000
	r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: "hi"})
	th, _ := r.Active()
	if th.UpdatedAt != 2000 {
		t.Fatalf("expected updatedAt 2000, got %d", th.UpdatedAt)
	}

	// A clock that jumps backwards must not rewind updatedAt.
	clock = 1500
	r.AppendAssistantToken(tid, "x")
	th, _ = r.Active()
	if th.UpdatedAt != 2000 {
		t.Fatalf("updatedAt went backwards: %d", th.UpdatedAt)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRepository(nil, nil)
	tid, _ := r.NewThread()
	r.AppendMessage(tid, Message{ID: "u1", Role: RoleUser, Content: "hello"})

	snap := r.Snapshot()
	snap[0].Messages[0].Content = "tampered"
	snap[0].Title = "tampered"

	th, _ := r.Active()
	if th.Messages[0].Content != "hello" || strings.HasPrefix(th.Title, "tampered") {
		t.Fatalf("snapshot aliases repository state")
	}
}

func TestKnownRoute(t *testing.T) {
	for _, raw := range []string{"pdf", "claims", "both"} {
		if _, ok := KnownRoute(raw); !ok {
			t.Fatalf("expected %q to be known", raw)
		}
	}
	for _, raw := range []string{"", "greet", "guardrail", "PDF"} {
		if _, ok := KnownRoute(raw); ok {
			t.Fatalf("expected %q to be unknown", raw)
		}
	}
}

func TestAdoptThreadUsesServerID(t *testing.T) {
	r := NewRepository(nil, nil)
	id, err := r.AdoptThread("server-1234")
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if id != "server-1234" || r.ActiveID() != "server-1234" {
		t.Fatalf("server id not adopted: %s / %s", id, r.ActiveID())
	}

	// Empty server id falls back to a local one.
	id, _ = r.AdoptThread("")
	if id == "" {
		t.Fatalf("expected generated id")
	}
}
