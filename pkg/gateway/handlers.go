package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tinypirate/tinypirate/pkg/bus"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
	"github.com/tinypirate/tinypirate/pkg/logger"
)

// SubmitResponse acknowledges an accepted submission. The caller observes
// dispatch results later via polling; submission never blocks on the
// handler.
type SubmitResponse struct {
	Status    string `json:"status"`
	CommandID string `json:"command_id"`
}

type ScheduleRequest struct {
	Enabled            bool `json:"enabled"`
	MinIntervalSeconds int  `json:"min_interval_seconds,omitempty"`
	MaxIntervalSeconds int  `json:"max_interval_seconds,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var sub bus.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd, ok := s.classifier.Classify(sub.Text, command.OriginUser)
	if !ok {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if sub.Attachment != "" {
		cmd = cmd.WithAttachment(sub.Attachment)
	}

	s.commandBus.Publish(cmd)

	logger.DebugCF("gateway", "submission accepted", map[string]any{
		"command": cmd.ID,
		"kind":    string(cmd.Kind),
		"source":  cmd.Source,
	})

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		Status:    "accepted",
		CommandID: cmd.ID,
	})
}

// archiveFetchLimit bounds one archive recovery read. A poller with a
// deeper backlog pages through it across successive requests.
const archiveFetchLimit = 4096

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since := uint64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since index")
			return
		}
		since = parsed
	}

	res := s.log.FetchSince(since)
	if res.Truncated && s.archive != nil {
		res = s.recoverFromArchive(since, res)
	}

	writeJSON(w, http.StatusOK, res)
}

// recoverFromArchive fills the gap between the poller's since index and
// the ring floor from the durable archive. When the gap exceeds one read
// the response carries only the archived run; the poller's next request
// continues from its last index, so no event is skipped.
func (s *Server) recoverFromArchive(since uint64, ring eventlog.FetchResult) eventlog.FetchResult {
	archived, err := s.archive.FetchSince(since, archiveFetchLimit)
	if err != nil || len(archived) == 0 {
		logger.WarnCF("gateway", "archive recovery unavailable", map[string]any{
			"since": since,
			"error": fmt.Sprint(err),
		})
		return ring
	}

	res := eventlog.FetchResult{Events: archived, Watermark: ring.Watermark}
	last := archived[len(archived)-1].Index
	for _, ev := range ring.Events {
		if ev.Index > last {
			res.Events = append(res.Events, ev)
		}
	}
	return res
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.schedules.Snapshots())
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	min := time.Duration(req.MinIntervalSeconds) * time.Second
	max := time.Duration(req.MaxIntervalSeconds) * time.Second
	if err := s.schedules.SetSchedule(id, req.Enabled, min, max); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	snap, _ := s.schedules.Snapshot(id)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: apiVersion,
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Error: message, Code: code})
}
