package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/config"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/spf13/cobra"
)

type infoResponse struct {
	NodesCount      int      `json:"nodes_count"`
	ListenAddresses []string `json:"listen_addresses"`
}

func newCfgNodeCmd() *cobra.Command {
	var (
		ollamaURL   string
		aiModel     string
		orchURL     string
		orchPubKey  string
		p2pAddr     []string
	)

	cmd := &cobra.Command{
		Use:   "cfg-node [path]",
		Short: "Generate a worker config by pulling cluster info from a running orchestrator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := nodePathDefault
			if len(args) == 1 {
				path = args[0]
			}
			if orchURL == "" {
				return fmt.Errorf("orchestrator: --orch is required")
			}
			if orchPubKey == "" {
				return fmt.Errorf("orchestrator: --orch-pubkey is required")
			}

			quic, err := fetchOrchQuicAddress(orchURL)
			if err != nil {
				return fmt.Errorf("orchestrator: loading cluster info: %w", err)
			}

			key, err := identity.GenerateKey()
			if err != nil {
				return fmt.Errorf("orchestrator: generating node key: %w", err)
			}

			cfg := config.NodeConfig{
				Base: config.BaseConfig{
					Key:           hex.EncodeToString(key.Seed()),
					OrchPublicKey: orchPubKey,
				},
				LLM:    ollamaConfig(ollamaURL, aiModel),
				Logger: config.LoggerConfig{Filter: "info"},
				P2P: config.P2PConfig{
					Addresses:   p2pAddr,
					OrchAddress: quic,
				},
			}

			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("orchestrator: clearing %s: %w", path, err)
			}
			cfgPath := filepath.Join(path, "config.yaml")
			if err := config.SaveNode(cfgPath, cfg); err != nil {
				return fmt.Errorf("orchestrator: saving node config: %w", err)
			}
			fmt.Printf("Node config saved successfully %s\n", cfgPath)
			fmt.Printf("Node Public Key: %s\n", key.PublicKey())
			return nil
		},
	}

	cmd.Flags().StringVarP(&ollamaURL, "ollama-url", "l", "http://localhost:11434", "URL to the ollama server")
	cmd.Flags().StringVarP(&aiModel, "ai-model", "a", "deepseek-r1:1.5b", "model to use for the ollama server")
	cmd.Flags().StringVarP(&orchURL, "orch", "o", "", "orchestrator HTTP API base URL, e.g. http://127.0.0.1:8080")
	cmd.Flags().StringVar(&orchPubKey, "orch-pubkey", "", "orchestrator's hex-encoded public key, shared by its operator")
	cmd.Flags().StringSliceVarP(&p2pAddr, "p2p-address", "p", nil, "this node's own listen multiaddr(s)")

	return cmd
}

// fetchOrchQuicAddress asks the orchestrator's HTTP API for its listen
// addresses and picks the first one, mirroring the original's "find_quic"
// lookup against the full ClusterInfo payload.
func fetchOrchQuicAddress(orchURL string) (string, error) {
	client := http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(orchURL + "/info")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("orchestrator: /info returned %s", resp.Status)
	}
	var info infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if len(info.ListenAddresses) == 0 {
		return "", fmt.Errorf("orchestrator: no listen address advertised yet")
	}
	return info.ListenAddresses[0], nil
}
