package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/config"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/spf13/cobra"
)

const nodePathDefault = "./eve"

func newInitCmd() *cobra.Command {
	var (
		ollamaURL string
		aiModel   string
		nodes     []string
		quic      string
		webrtc    string
		jwt       string
		rpc       string
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate an orchestrator keypair and one config per worker node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := nodePathDefault
			if len(args) == 1 {
				path = args[0]
			}
			if quic == "" {
				return fmt.Errorf("orchestrator: --quic is required")
			}
			if webrtc == "" {
				return fmt.Errorf("orchestrator: --webrtc is required")
			}

			orchKey, err := identity.GenerateKey()
			if err != nil {
				return fmt.Errorf("orchestrator: generating orchestrator key: %w", err)
			}

			for i, addr := range nodes {
				nodeKey, err := identity.GenerateKey()
				if err != nil {
					return fmt.Errorf("orchestrator: generating node %d key: %w", i, err)
				}
				cfg := config.NodeConfig{
					Base: config.BaseConfig{
						Key:           hex.EncodeToString(nodeKey.Seed()),
						OrchPublicKey: orchKey.PublicKey().String(),
					},
					LLM:    ollamaConfig(ollamaURL, aiModel),
					Logger: config.LoggerConfig{Filter: "info"},
					P2P: config.P2PConfig{
						Addresses:   []string{addr},
						OrchAddress: quic,
					},
				}

				dir := filepath.Join(path, fmt.Sprintf("node_%d", i))
				if err := os.RemoveAll(dir); err != nil {
					return fmt.Errorf("orchestrator: clearing %s: %w", dir, err)
				}
				cfgPath := filepath.Join(dir, "config.yaml")
				if err := config.SaveNode(cfgPath, cfg); err != nil {
					return fmt.Errorf("orchestrator: saving node %d config: %w", i, err)
				}
				fmt.Printf("Node %d config saved successfully %s\n", i, cfgPath)
			}

			orchCfg := config.OrchestratorConfig{
				Base:   config.BaseConfig{Key: hex.EncodeToString(orchKey.Seed())},
				LLM:    ollamaConfig(ollamaURL, aiModel),
				Logger: config.LoggerConfig{Filter: "info"},
				Db:     config.DbConfig{Path: "db"},
				Rpc:    config.RpcConfig{Address: rpc},
				Tasks:  config.TasksConfig{ReplicationFactor: 3, TaskTimeoutSecs: 60},
				Api:    defaultAPI(jwt),
				P2P:    config.P2PConfig{Addresses: []string{quic, webrtc}},
			}

			orchDir := filepath.Join(path, "orch")
			if err := os.RemoveAll(orchDir); err != nil {
				return fmt.Errorf("orchestrator: clearing %s: %w", orchDir, err)
			}
			orchPath := filepath.Join(orchDir, "config.yaml")
			if err := config.SaveOrchestrator(orchPath, orchCfg); err != nil {
				return fmt.Errorf("orchestrator: saving orchestrator config: %w", err)
			}
			fmt.Printf("Orchestrator config saved successfully %s\n", orchPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&ollamaURL, "ollama-url", "l", "http://localhost:11434", "URL to the ollama server")
	cmd.Flags().StringVarP(&aiModel, "ai-model", "a", "deepseek-r1:1.5b", "model to use for the ollama server")
	cmd.Flags().StringSliceVarP(&nodes, "nodes", "n", nil, "worker listen multiaddr, one per worker to scaffold")
	cmd.Flags().StringVar(&quic, "quic", "", "orchestrator quic multiaddr, e.g. /ip4/127.0.0.1/udp/0/quic-v1")
	cmd.Flags().StringVar(&webrtc, "webrtc", "", "orchestrator webrtc multiaddr, e.g. /ip4/127.0.0.1/udp/9903/webrtc-direct")
	cmd.Flags().StringVarP(&jwt, "jwt", "j", "", "JWT secret guarding the admin routes; a dev default is used if omitted")
	cmd.Flags().StringVarP(&rpc, "rpc", "r", "0.0.0.0:1733", "orchestrator HTTP API listen address")

	return cmd
}

func ollamaConfig(url, model string) config.LLMConfig {
	cfg := config.LLMConfig{URL: url, Model: model}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-r1:1.5b"
	}
	cfg.MaxTokens = 1
	cfg.TimeMillis = 1000
	cfg.RetryLimit = 13
	cfg.Timeout = 300 * time.Second
	return cfg
}

func defaultAPI(jwt string) config.ApiConfig {
	cfg := config.ApiConfig{
		ReqPerHour:         100,
		AirdropPerHour:     10,
		MaxReqLength:       10000,
		ClusterInfoTTLSecs: 10,
		ListenAddress:      "0.0.0.0:8080",
	}
	if jwt != "" {
		cfg.JwtSecret = jwt
	} else {
		fmt.Println("Warning: JWT secret is not provided. Orchestrator API will be unauthenticated by default secret.")
	}
	return cfg
}
