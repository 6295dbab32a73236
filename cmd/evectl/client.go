package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// client is a thin HTTP adapter onto the orchestrator's REST surface
// (internal/httpapi), used both by unauthenticated read commands and, for
// the admin node routes, with a caller-supplied JWT bearer token.
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *client) do(ctx context.Context, method, path string, body interface{}, jwt string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("evectl: %s %s: %s (%s)", method, path, apiErr.Error, resp.Status)
		}
		return fmt.Errorf("evectl: %s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Balance returns the account balance in the smallest unit.
func (c *client) Balance(ctx context.Context, pubkey string) (uint64, error) {
	var info struct {
		Balance uint64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/account/"+pubkey, nil, "", &info); err != nil {
		return 0, err
	}
	return info.Balance, nil
}

// Airdrop credits pubkey with the faucet's fixed payout and returns the
// resulting balance.
func (c *client) Airdrop(ctx context.Context, pubkey string) (uint64, error) {
	var info struct {
		Balance uint64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodPost, "/account/airdrop/"+pubkey, nil, "", &info); err != nil {
		return 0, err
	}
	return info.Balance, nil
}

// Cost returns the configured per-request cost estimate from GET /.
func (c *client) Cost(ctx context.Context) (uint64, error) {
	var info struct {
		Cost uint64 `json:"cost"`
	}
	if err := c.do(ctx, http.MethodGet, "/", nil, "", &info); err != nil {
		return 0, err
	}
	return info.Cost, nil
}

// Query submits req and returns the freshly minted QueryId.
func (c *client) Query(ctx context.Context, req types.SignedAiRequest) (types.QueryId, error) {
	var idHex string
	if err := c.do(ctx, http.MethodPost, "/query", req, "", &idHex); err != nil {
		return types.QueryId{}, err
	}
	return types.QueryIdFromHex(idHex)
}

// Answer waits up to timeout for query id to produce at least one response
// row (the API answers 202 with an empty body until then), polling every
// pollInterval.
func (c *client) Answer(ctx context.Context, id types.QueryId, timeout, pollInterval time.Duration) (types.Query, error) {
	deadline := time.Now().Add(timeout)
	for {
		var query types.Query
		err := c.do(ctx, http.MethodGet, "/answer/"+id.String(), nil, "", &query)
		if err == nil {
			return query, nil
		}
		if !errors.Is(err, io.EOF) {
			return types.Query{}, err
		}
		if time.Now().After(deadline) {
			return types.Query{}, fmt.Errorf("evectl: timed out waiting for an answer to %s", id)
		}
		select {
		case <-ctx.Done():
			return types.Query{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History returns the conversation thread leading up to query id.
func (c *client) History(ctx context.Context, id types.QueryId) ([]historyEntry, error) {
	var thread []historyEntry
	if err := c.do(ctx, http.MethodGet, "/history/"+id.String(), nil, "", &thread); err != nil {
		return nil, err
	}
	return thread, nil
}

type clusterInfoResponse struct {
	NodesCount      int      `json:"nodes_count"`
	ListenAddresses []string `json:"listen_addresses"`
}

// Info returns the cluster membership/listen-address snapshot.
func (c *client) Info(ctx context.Context) (clusterInfoResponse, error) {
	var info clusterInfoResponse
	err := c.do(ctx, http.MethodGet, "/info", nil, "", &info)
	return info, err
}

type nodeInfo struct {
	PublicKey   string  `json:"public_key"`
	Address     *string `json:"address"`
	IsConnected bool    `json:"is_connected"`
}

// Nodes returns every whitelisted worker and its live connection state.
func (c *client) Nodes(ctx context.Context) ([]nodeInfo, error) {
	var nodes []nodeInfo
	err := c.do(ctx, http.MethodGet, "/nodes", nil, "", &nodes)
	return nodes, err
}

// Node returns a single worker's membership state, or nil if it isn't a
// known member.
func (c *client) Node(ctx context.Context, pubkey string) (*nodeInfo, error) {
	var node *nodeInfo
	err := c.do(ctx, http.MethodGet, "/nodes/"+pubkey, nil, "", &node)
	return node, err
}

type addNodeBody struct {
	PublicKey string  `json:"public_key"`
	Address   *string `json:"address"`
}

// Metrics fetches the orchestrator's raw Prometheus exposition text.
func (c *client) Metrics(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/metrics", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("evectl: GET /metrics: %s", resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// AddNode whitelists a new worker; jwt must be a valid Bearer token for the
// orchestrator's admin secret.
func (c *client) AddNode(ctx context.Context, jwt, pubkey string, address *string) error {
	return c.do(ctx, http.MethodPut, "/nodes/action", addNodeBody{PublicKey: pubkey, Address: address}, jwt, nil)
}

// RemoveNode removes and disconnects a worker; jwt must be a valid Bearer
// token for the orchestrator's admin secret.
func (c *client) RemoveNode(ctx context.Context, jwt, pubkey string) error {
	return c.do(ctx, http.MethodDelete, "/nodes/action", pubkey, jwt, nil)
}
