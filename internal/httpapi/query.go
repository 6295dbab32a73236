package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// handleQuery answers POST /query: pre-checks length, blacklist, rate
// limits and signature before handing the request to the dispatch loop.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req types.SignedAiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if len(req.Query.Message) > s.cfg.MaxReqLength {
		writeError(w, http.StatusRequestEntityTooLarge, "message too long")
		return
	}
	for _, word := range s.cfg.BlacklistWords {
		if strings.Contains(req.Query.Message, word) {
			writeError(w, http.StatusBadRequest, "message contains a blacklisted word")
			return
		}
	}

	pubkeyKey := req.Query.PubKey.String()
	if ok, wait := s.askLimits.allow(pubkeyKey); !ok {
		retryAfter(w, wait)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if ok, wait := s.askLimits.allow(remoteIP(r.RemoteAddr)); !ok {
		retryAfter(w, wait)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if !req.Verify() {
		writeError(w, http.StatusBadRequest, "invalid request signature")
		return
	}
	if err := req.Query.ValidateHistory(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply := make(chan orchestrator.AskReply, 1)
	s.sender <- orchestrator.Request{Ask: &orchestrator.AskRequest{Request: req, Reply: reply}}
	result := <-reply
	if result.Err != nil {
		writeError(w, http.StatusBadRequest, result.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result.ID.String())
}

// handleAnswer answers GET /answer/{query_id}: the current ranked
// responses, or 202 while dispatch hasn't produced a single row yet.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query id")
		return
	}
	query, found, err := s.storage.GetQuery(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown query")
		return
	}
	if len(query.Responses) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	query.Responses = query.Ranked()
	writeJSON(w, http.StatusOK, query)
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleHistory answers GET /history/{query_id}: the conversation thread
// leading up to query_id, rebuilt from its original request for clients
// continuing the conversation.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := queryIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query id")
		return
	}
	query, found, err := s.storage.GetQuery(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown query")
		return
	}

	thread := make([]historyEntry, 0, len(query.Request.Query.History)+2)
	for _, h := range query.Request.Query.History {
		thread = append(thread, historyEntry{Role: h.Role.String(), Content: h.Content})
	}
	thread = append(thread, historyEntry{Role: types.RoleUser.String(), Content: query.Request.Query.Message})
	if ranked := query.Ranked(); len(ranked) > 0 && ranked[0].Kind == types.KindVerified {
		thread = append(thread, historyEntry{
			Role:    types.RoleAssistant.String(),
			Content: ranked[0].Verdict.Result.Material.Response.Message,
		})
	}
	writeJSON(w, http.StatusOK, thread)
}
