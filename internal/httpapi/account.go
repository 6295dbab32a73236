package httpapi

import (
	"net/http"

	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
)

type accountInfo struct {
	Balance uint64 `json:"balance"`
}

// airdropAmount is the fixed faucet payout for every /account/airdrop call.
const airdropAmount = 1_000_000

// handleAccount answers GET /account/{pubkey} with the account's current
// balance, zero if it has never been credited.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	pk, ok := parsePubKey(w, pubKeyParam(r))
	if !ok {
		return
	}
	acc, err := s.storage.Account(pk)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, accountInfo{Balance: acc.Balance})
}

// handleAirdrop answers POST /account/airdrop/{pubkey}: a rate-limited
// faucet that credits pubkey with a fixed payout through the dispatch loop.
func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	pk, ok := parsePubKey(w, pubKeyParam(r))
	if !ok {
		return
	}
	if ok, wait := s.airdropLimits.allow(pk.String()); !ok {
		retryAfter(w, wait)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if ok, wait := s.askLimits.allow(remoteIP(r.RemoteAddr)); !ok {
		retryAfter(w, wait)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	reply := make(chan error, 1)
	s.sender <- orchestrator.Request{Airdrop: &orchestrator.AirdropRequest{
		PublicKey: pk,
		Amount:    airdropAmount,
		Reply:     reply,
	}}
	if err := <-reply; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	acc, err := s.storage.Account(pk)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, accountInfo{Balance: acc.Balance})
}
