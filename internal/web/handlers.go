package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sweeney/relay-latch/internal/latch"
	"github.com/sweeney/relay-latch/internal/status"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.State()
	s.track(snap)
	writeJSON(w, http.StatusOK, newStatusResponse(snap))
}

func (s *Server) handleTransition(kind latch.Transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.ctrl.Request(kind)
		s.track(snap)

		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, newStatusResponse(snap))
		case errors.Is(err, latch.ErrLatchActive):
			s.rejected()
			writeError(w, http.StatusLocked, msgLatchActive)
		case errors.Is(err, latch.ErrExpiredNotCleared):
			s.rejected()
			writeJSON(w, http.StatusAccepted, infoBody{Info: msgExpired})
		default:
			s.logger.Error("transition failed", "transition", kind.String(), "error", err, "request_id", requestID(r))
			writeError(w, http.StatusInternalServerError, msgOutputFailure)
		}
	}
}

func (s *Server) handleGetLatch(w http.ResponseWriter, r *http.Request) {
	n := int64(s.ctrl.LatchPeriod())
	writeJSON(w, http.StatusOK, LatchBody{Latch: &n})
}

func (s *Server) handleSetLatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, msgMissingBody)
		return
	}

	seconds, ok := decodeLatch(body)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	n := int64(s.ctrl.SetLatchPeriod(seconds))
	s.logger.Info("latch period set", "requested", seconds, "stored", n, "request_id", requestID(r))
	writeJSON(w, http.StatusOK, LatchBody{Latch: &n})
}

// decodeLatch accepts exactly one JSON object carrying an integral "latch".
func decodeLatch(body []byte) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var req latchRequest
	if err := dec.Decode(&req); err != nil {
		return 0, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return 0, false
	}
	return parseSeconds(string(req.Latch))
}

// parseSeconds accepts any JSON number with an integral value, including
// exponent forms. Values outside int64 saturate; the controller clamps them.
func parseSeconds(s string) (int64, bool) {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	case f != math.Trunc(f):
		return 0, false
	case f == 0 && strings.ContainsAny(mantissa(s), "123456789"):
		// Underflowed fraction such as 1e-400.
		return 0, false
	}
	return int64(f), true
}

func mantissa(s string) string {
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return s[:i]
	}
	return s
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Reset()
	s.track(snap)
	if err != nil {
		s.logger.Error("reset failed", "error", err, "request_id", requestID(r))
		writeError(w, http.StatusInternalServerError, msgOutputFailure)
		return
	}
	writeJSON(w, http.StatusOK, resetBody{Reset: true})
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "text/plain; charset=utf-8", status.FormatMenu(s.daemonSnapshot()))
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(status.FormatJSON(s.daemonSnapshot()))
}

func (s *Server) daemonSnapshot() status.Snapshot {
	latchSnap := s.ctrl.State()
	if s.tracker == nil {
		return status.Snapshot{Latch: latchSnap}
	}
	s.tracker.UpdateLatch(latchSnap)
	return s.tracker.Snapshot()
}

func (s *Server) track(snap latch.Snapshot) {
	if s.tracker != nil {
		s.tracker.UpdateLatch(snap)
	}
}

func (s *Server) rejected() {
	if s.tracker != nil {
		s.tracker.RecordRejection()
	}
}
