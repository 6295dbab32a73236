package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

type nodeInfo struct {
	PublicKey   string  `json:"public_key"`
	Address     *string `json:"address"`
	IsConnected bool    `json:"is_connected"`
}

// handleNodesList answers GET /nodes with every whitelisted worker and its
// live connection state.
func (s *Server) handleNodesList(w http.ResponseWriter, r *http.Request) {
	reply := make(chan types.ClusterInfo, 1)
	s.sender <- orchestrator.Request{ClusterInfo: &orchestrator.ClusterInfoRequest{Reply: reply}}
	info := <-reply

	nodes := make([]nodeInfo, 0, len(info.Peers))
	for _, p := range info.Peers {
		nodes = append(nodes, nodeInfo{
			PublicKey:   p.PublicKey.String(),
			Address:     p.Address,
			IsConnected: info.IsConnected(p.PublicKey),
		})
	}
	writeJSON(w, http.StatusOK, nodes)
}

// handleNodeGet answers GET /nodes/{pubkey} with a single worker's
// membership and connection state, or null if it isn't a known member.
func (s *Server) handleNodeGet(w http.ResponseWriter, r *http.Request) {
	pk, ok := parsePubKey(w, pubKeyParam(r))
	if !ok {
		return
	}

	reply := make(chan types.ClusterInfo, 1)
	s.sender <- orchestrator.Request{ClusterInfo: &orchestrator.ClusterInfoRequest{Reply: reply}}
	info := <-reply

	for _, p := range info.Peers {
		if p.PublicKey == pk {
			writeJSON(w, http.StatusOK, nodeInfo{
				PublicKey:   p.PublicKey.String(),
				Address:     p.Address,
				IsConnected: info.IsConnected(p.PublicKey),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

type addNodeBody struct {
	PublicKey string  `json:"public_key"`
	Address   *string `json:"address"`
}

// handleNodeAdd answers PUT /nodes/action: whitelists a new worker.
// JWT-guarded, like the original's node-admin routes.
func (s *Server) handleNodeAdd(w http.ResponseWriter, r *http.Request) {
	var body addNodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	pk, ok := parsePubKey(w, body.PublicKey)
	if !ok {
		return
	}

	reply := make(chan error, 1)
	s.sender <- orchestrator.Request{AddNode: &orchestrator.AddNodeRequest{
		PublicKey: pk,
		Address:   body.Address,
		Reply:     reply,
	}}
	if err := <-reply; err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

// handleNodeRemove answers DELETE /nodes/action: removes and disconnects a
// worker. JWT-guarded.
func (s *Server) handleNodeRemove(w http.ResponseWriter, r *http.Request) {
	var pubkey string
	if err := json.NewDecoder(r.Body).Decode(&pubkey); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	pk, ok := parsePubKey(w, pubkey)
	if !ok {
		return
	}

	reply := make(chan error, 1)
	s.sender <- orchestrator.Request{RemoveNode: &orchestrator.RemoveNodeRequest{
		PublicKey: pk,
		Reply:     reply,
	}}
	if err := <-reply; err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

func writeNodeError(w http.ResponseWriter, err error) {
	switch err {
	case orchestrator.ErrAlreadyInWhitelist, orchestrator.ErrNotInWhitelist:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
