package httpapi

import (
	"net/http"

	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

type costInfo struct {
	Cost uint64 `json:"cost"`
}

// handleCost answers GET /: a per-token cost estimate. Eve's workers set
// their own cost per answer (AiResponse.Cost), so this is only ever a
// configured estimate for clients budgeting ahead of time.
func (s *Server) handleCost(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, costInfo{Cost: 1})
}

type aiModelInfo struct {
	Model string `json:"model"`
	URL   string `json:"url"`
}

// handleAiModel answers GET /ai: the download descriptor for the
// in-browser/local model this orchestrator's workers are configured to
// run.
func (s *Server) handleAiModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aiModelInfo{Model: s.llm.Model, URL: s.llm.URL})
}

type infoResponse struct {
	NodesCount      int      `json:"nodes_count"`
	ListenAddresses []string `json:"listen_addresses"`
}

// handleInfo answers GET /info with a cluster membership snapshot.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	reply := make(chan types.ClusterInfo, 1)
	s.sender <- orchestrator.Request{ClusterInfo: &orchestrator.ClusterInfoRequest{Reply: reply}}
	info := <-reply
	writeJSON(w, http.StatusOK, infoResponse{NodesCount: info.NodesCount, ListenAddresses: info.ListenAddresses})
}
