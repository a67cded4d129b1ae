package omnibot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// StreamHandlers receive protocol events in arrival order. A route event,
// if any, always precedes the first token or final. Exactly one terminal
// handler fires per session: OnFinal on a graceful end, OnError on a
// transport failure or unexpected close. After cancellation no handler is
// invoked at all.
type StreamHandlers struct {
	OnRoute     func(route string)
	OnToken     func(agent, token string)
	OnCitations func(agent string, citations []Citation)
	OnFinal     func(answer string)
	OnError     func(err error)
}

// StreamChat opens one server-push stream for a submitted query and returns
// a cancellation handle. The caller must invoke cancel when it starts a new
// query before this one finished, or on teardown; once cancel returns, no
// further handler invocations happen, even for events already in flight.
// After the terminal event the handle is a no-op.
func (c *Client) StreamChat(query, threadID string, handlers StreamHandlers) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	s := &session{handlers: handlers, stop: stop}
	go s.run(ctx, c, query, threadID)
	return s.cancel
}

// session is one outstanding exchange with the agent backend. closed flips
// exactly once, on cancellation or on the terminal event; emit and cancel
// share the mutex so cancel() blocks until any in-flight handler returns.
type session struct {
	mu       sync.Mutex
	closed   bool
	stop     context.CancelFunc
	handlers StreamHandlers
}

func (s *session) cancel() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
}

func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// emit invokes fn unless the session is already closed.
func (s *session) emit(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || fn == nil {
		return
	}
	fn()
}

// fail delivers the terminal error signal and closes the session. A
// cancelled session swallows the error silently.
func (s *session) fail(err error) {
	s.emit(func() {
		if s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}
	})
	s.close()
}

func (s *session) run(ctx context.Context, c *Client, query, threadID string) {
	defer s.stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(query, threadID), nil)
	if err != nil {
		s.fail(fmt.Errorf("failed to create stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		s.fail(fmt.Errorf("stream request failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.fail(fmt.Errorf("omnibot returned status %d", resp.StatusCode))
		return
	}

	if err := s.consume(resp.Body); err != nil {
		s.fail(err)
	}
}

// consume reads SSE frames until the final event or a read failure. A
// server that closes the connection without a final event is reported as an
// unexpected close.
func (s *session) consume(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if terminal := s.dispatch(event, strings.Join(data, "\n")); terminal {
				return nil
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	return errors.New("stream closed before final event")
}

// dispatch decodes one frame and invokes the matching handler. Malformed
// payloads are dropped without terminating the session: the protocol allows
// optional fields and a single corrupt event must not abort a healthy
// stream. The lone exception is final, which stays terminal even when its
// payload does not parse, so the session always ends in exactly one
// terminal signal.
func (s *session) dispatch(event, data string) (terminal bool) {
	switch event {
	case "route":
		var p routePayload
		if err := json.Unmarshal([]byte(data), &p); err != nil || p.Route == "" {
			return false
		}
		s.emit(func() {
			if s.handlers.OnRoute != nil {
				s.handlers.OnRoute(p.Route)
			}
		})
	case "token":
		var p tokenPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return false
		}
		s.emit(func() {
			if s.handlers.OnToken != nil {
				s.handlers.OnToken(p.Agent, p.Token)
			}
		})
	case "citations":
		var p citationsPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return false
		}
		s.emit(func() {
			if s.handlers.OnCitations != nil {
				s.handlers.OnCitations(p.Agent, p.Citations)
			}
		})
	case "final":
		var p finalPayload
		// Best effort: an unparsable final still terminates, with an
		// empty answer.
		_ = json.Unmarshal([]byte(data), &p)
		s.emit(func() {
			if s.handlers.OnFinal != nil {
				s.handlers.OnFinal(p.Answer)
			}
		})
		s.close()
		return true
	}
	return false
}
