package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"simulation_builder/generator"
	"simulation_builder/publisher"
)

// --- Requests / responses ---

type generatePromptReq struct {
	Name          string `json:"name"`
	Subject       string `json:"subject"`
	Department    string `json:"department"`
	Course        string `json:"course"`
	Description   string `json:"description"`
	Complexity    string `json:"complexity"`
	Interactivity string `json:"interactivity"`
	Provider      string `json:"provider,omitempty"`
}

type promptReq struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider,omitempty"`
}

type chatReq struct {
	Message  string              `json:"message"`
	Code     string              `json:"code"`
	History  []generator.Message `json:"history"`
	Provider string              `json:"provider,omitempty"`
}

type chatResp struct {
	Response    string  `json:"response"`
	UpdatedCode *string `json:"updatedCode"`
	UpdateKind  string  `json:"updateKind"`
	Provider    string  `json:"provider"`
}

type messageReq struct {
	Message string `json:"message"`
}

type publishReq struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Digest string `json:"digest,omitempty"`
}

type sessionResp struct {
	SessionID string              `json:"session_id"`
	State     string              `json:"state"`
	Code      string              `json:"code"`
	History   []generator.Message `json:"history"`
}

type turnResp struct {
	sessionResp
	Response   string `json:"response"`
	Updated    bool   `json:"updated"`
	UpdateKind string `json:"updateKind"`
	Provider   string `json:"provider"`
	FellBack   bool   `json:"fell_back"`
}

type errorResp struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// --- One-shot generation ---

func (s *Server) handleGeneratePrompt(w http.ResponseWriter, r *http.Request) {
	var req generatePromptReq
	if !decode(w, r, &req) {
		return
	}
	complexity, err := generator.ParseTier(req.Complexity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid complexity", err)
		return
	}
	interactivity, err := generator.ParseTier(req.Interactivity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid interactivity", err)
		return
	}
	caller, ok := s.caller(w, r, req.Provider)
	if !ok {
		return
	}

	prompt, err := s.agent.SynthesizePrompt(r.Context(), caller, generator.SimulationRequest{
		Name:          req.Name,
		Subject:       req.Subject,
		Department:    req.Department,
		Course:        req.Course,
		Description:   req.Description,
		Complexity:    complexity,
		Interactivity: interactivity,
	})
	if err != nil {
		s.writeEngineError(w, "Failed to generate prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var req promptReq
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required", nil)
		return
	}
	caller, ok := s.caller(w, r, req.Provider)
	if !ok {
		return
	}
	code, err := s.agent.GenerateCode(r.Context(), caller, req.Prompt)
	if err != nil {
		s.writeEngineError(w, "Failed to generate code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

// handleChat serves clients that keep the conversation themselves.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", nil)
		return
	}
	caller, ok := s.caller(w, r, req.Provider)
	if !ok {
		return
	}

	sess := generator.RestoreSession(uuid.NewString(), caller, s.agent, req.History, req.Code)
	res, err := sess.Submit(r.Context(), req.Message)
	if err != nil {
		s.writeEngineError(w, "Failed to process chat message", err)
		return
	}
	out := chatResp{
		Response:   res.Display,
		UpdateKind: string(res.Kind),
		Provider:   string(res.Backend),
	}
	if res.Updated {
		code := res.Code
		out.UpdatedCode = &code
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Server-held sessions ---

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req promptReq
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required", nil)
		return
	}
	caller, ok := s.caller(w, r, req.Provider)
	if !ok {
		return
	}
	id := uuid.NewString()
	sess, err := s.agent.StartSession(r.Context(), id, caller, req.Prompt)
	if err != nil {
		s.writeEngineError(w, "Failed to generate code", err)
		return
	}
	s.store.set(id, sess)
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.store.remove(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req messageReq
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", nil)
		return
	}
	res, err := sess.Submit(r.Context(), req.Message)
	if err != nil {
		s.writeEngineError(w, "Failed to process chat message", err)
		return
	}
	writeJSON(w, http.StatusOK, turnResp{
		sessionResp: viewOf(sess),
		Response:    res.Display,
		Updated:     res.Updated,
		UpdateKind:  string(res.Kind),
		Provider:    string(res.Backend),
		FellBack:    res.FellBack,
	})
}

func (s *Server) handleSessionPublish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req publishReq
	if !decode(w, r, &req) {
		return
	}
	if sess.State() == generator.StateAwaiting {
		writeError(w, http.StatusConflict, "a chat turn is still running", generator.ErrSessionBusy)
		return
	}
	bundle, err := s.pub.Publish(r.Context(), publisher.PublishParams{
		Title:      req.Title,
		Code:       sess.Artifact(),
		Transcript: sess.History(),
		Author:     req.Author,
		Digest:     req.Digest,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to publish simulation", err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// --- Helpers ---

func viewOf(sess *generator.Session) sessionResp {
	return sessionResp{
		SessionID: sess.ID,
		State:     sess.State().String(),
		Code:      sess.Artifact(),
		History:   sess.History(),
	}
}

// caller resolves the user and preferred backend: body field first, then header,
// then the server default.
func (s *Server) caller(w http.ResponseWriter, r *http.Request, bodyProvider string) (generator.Caller, bool) {
	pref := bodyProvider
	if pref == "" {
		pref = r.Header.Get(headerPreferredProvider)
	}
	backend := s.defaultBackend
	if pref != "" {
		b, err := generator.ParseBackend(pref)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid provider", err)
			return generator.Caller{}, false
		}
		backend = b
	}
	return generator.Caller{UserID: r.Header.Get(headerUserID), Preferred: backend}, true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*generator.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.store.get(id)
	if !ok || sess.Caller.UserID != r.Header.Get(headerUserID) {
		writeError(w, http.StatusNotFound, "session not found", nil)
		return nil, false
	}
	return sess, true
}

func (s *Server) writeEngineError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, generator.ErrSessionBusy):
		status = http.StatusConflict
	case errors.Is(err, generator.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, generator.ErrProviderCallFailed):
		status = http.StatusBadGateway
	}
	s.log.Warn(msg, "status", status, "error", err)
	writeError(w, status, msg, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResp{Message: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
