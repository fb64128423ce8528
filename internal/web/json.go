package web

import (
	"encoding/json"
	"net/http"

	"github.com/sweeney/relay-latch/internal/latch"
)

// StatusResponse is the body of GET /status and of a successful transition.
type StatusResponse struct {
	D1          string `json:"d1"`
	Latch       int    `json:"latch"`
	TimerActive bool   `json:"latch_timer_active"`
	TimerExpiry uint32 `json:"latch_timer_expiry"`
	Millis      uint32 `json:"millis"`
}

// LatchBody is the body of GET /latch, POST /latch and its reply.
type LatchBody struct {
	Latch *int64 `json:"latch"`
}

// latchRequest keeps "latch" raw so any integral number form is accepted.
type latchRequest struct {
	Latch json.RawMessage `json:"latch"`
}

type errorBody struct {
	Error string `json:"error"`
}

type infoBody struct {
	Info string `json:"info"`
}

type resetBody struct {
	Reset bool `json:"reset"`
}

// Response messages.
const (
	msgLatchActive   = "Latch active"
	msgExpired       = "Latch expired, wait for clear"
	msgMissingBody   = "Missing body"
	msgInvalidJSON   = "Invalid JSON"
	msgOutputFailure = "Output failure"
	msgBodyTooLarge  = "Body too large"
	msgInternal      = "Internal error"
)

func newStatusResponse(s latch.Snapshot) StatusResponse {
	return StatusResponse{
		D1:          s.Level.String(),
		Latch:       s.PeriodSeconds,
		TimerActive: s.LatchActive,
		TimerExpiry: s.ExpiryMillis(),
		Millis:      uint32(s.Now),
	}
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeText(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(body))
}
