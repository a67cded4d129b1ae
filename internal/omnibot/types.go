package omnibot

// Citation points at a retrieved source chunk backing part of an answer.
type Citation struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
}

// chatRequest is the body of the one-shot POST /chat endpoint.
type chatRequest struct {
	Text     string `json:"text"`
	ThreadID string `json:"thread_id,omitempty"`
}

// chatResponse is the one-shot answer.
type chatResponse struct {
	ThreadID string `json:"thread_id"`
	Answer   string `json:"answer"`
}

// mintResponse is returned by POST /thread/new.
type mintResponse struct {
	ThreadID string `json:"thread_id"`
}

// Wire payloads of the stream events. Fields the client does not consume
// (thread_id echoes) are decoded and ignored.
type routePayload struct {
	ThreadID string `json:"thread_id"`
	Route    string `json:"route"`
}

type tokenPayload struct {
	Agent string `json:"agent"`
	Token string `json:"token"`
}

type citationsPayload struct {
	Agent     string     `json:"agent"`
	Citations []Citation `json:"citations"`
}

type finalPayload struct {
	ThreadID string `json:"thread_id"`
	Answer   string `json:"answer"`
}
