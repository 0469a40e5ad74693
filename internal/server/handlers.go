package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/gisa/core/conversations"
	"github.com/koscakluka/gisa/internal/livekit"
	"github.com/koscakluka/gisa/internal/sessions"
)

const (
	statusActive   = "active"
	statusPending  = "pending"
	statusInactive = "inactive"
	statusEnded    = "ended"
)

type healthHandler struct {
	sessions *sessions.Registry[*Session]
	now      func() time.Time
}

func (h healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status         string    `json:"status"`
		Timestamp      time.Time `json:"timestamp"`
		ActiveSessions int       `json:"activeSessions"`
	}{
		Status:         "healthy",
		Timestamp:      h.now().UTC(),
		ActiveSessions: h.sessions.Count(),
	})
}

type tokenHandler struct {
	creds livekit.Credentials
}

type tokenRequest struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
}

type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (h tokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RoomName == "" || req.ParticipantName == "" {
		writeError(w, http.StatusBadRequest, "roomName and participantName are required")
		return
	}

	token, err := livekit.IssueToken(h.creds, livekit.TokenRequest{Room: req.RoomName, Name: req.ParticipantName})
	if err != nil {
		logger.Error("failed to generate token", "room", req.RoomName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	logger.Info("token issued", "room", req.RoomName, "participant", req.ParticipantName)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, URL: h.creds.URL})
}

type startSessionHandler struct {
	sessions *sessions.Registry[*Session]
	factory  Factory
}

type startSessionRequest struct {
	SessionID string `json:"sessionId"`
	RoomName  string `json:"roomName"`
}

type startSessionResponse struct {
	SessionID string              `json:"sessionId"`
	Status    string              `json:"status"`
	Phase     conversations.Phase `json:"phase"`
}

func (h startSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if h.sessions.Has(req.SessionID) {
		writeError(w, http.StatusConflict, "Session already exists")
		return
	}

	session, err := h.factory(r.Context(), req.SessionID, req.RoomName)
	if err != nil {
		logger.Error("failed to create session", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start session: "+err.Error())
		return
	}

	status := statusPending
	if !session.awaitsStream() {
		if err := session.Start(r.Context()); err != nil {
			session.Shutdown()
			logger.Error("failed to initialize session", "session_id", req.SessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to start session: "+err.Error())
			return
		}
		status = statusActive
	}
	if err := h.sessions.Add(session); err != nil {
		session.Shutdown()
		if errors.Is(err, sessions.ErrExists) {
			writeError(w, http.StatusConflict, "Session already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start session: "+err.Error())
		return
	}

	logger.Info("session started", "session_id", req.SessionID, "room", req.RoomName, "status", status)
	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionID: req.SessionID,
		Status:    status,
		Phase:     session.orchestrator.State().Phase,
	})
}

type sessionStatusHandler struct {
	sessions *sessions.Registry[*Session]
	now      func() time.Time
}

type sessionStatusResponse struct {
	SessionID    string              `json:"sessionId"`
	Status       string              `json:"status"`
	Phase        conversations.Phase `json:"phase"`
	UCValidated  bool                `json:"ucValidated"`
	MessageCount int                 `json:"messageCount"`
	Uptime       int64               `json:"uptime"`
	Protocol     string              `json:"protocol,omitempty"`
	Room         string              `json:"roomName,omitempty"`
	TurnInFlight bool                `json:"turnInFlight"`
	Interim      string              `json:"interimTranscript,omitempty"`
}

func (h sessionStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, statusOf(session, h.now()))
}

func statusOf(session *Session, now time.Time) sessionStatusResponse {
	o := session.orchestrator
	state := o.State()
	status := statusInactive
	switch {
	case o.IsActive():
		status = statusActive
	case session.pending():
		status = statusPending
	}
	return sessionStatusResponse{
		SessionID:    state.ID,
		Status:       status,
		Phase:        state.Phase,
		UCValidated:  state.Validated,
		MessageCount: state.MessageCount(),
		Uptime:       state.Uptime(now).Milliseconds(),
		Protocol:     state.Protocol,
		Room:         session.room,
		TurnInFlight: o.TurnInFlight(),
		Interim:      o.InterimTranscript(),
	}
}

type endSessionHandler struct {
	sessions *sessions.Registry[*Session]
}

func (h endSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.sessions.End(id); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	logger.Info("session ended", "session_id", id)
	writeJSON(w, http.StatusOK, struct {
		SessionID string `json:"sessionId"`
		Status    string `json:"status"`
	}{SessionID: id, Status: statusEnded})
}
