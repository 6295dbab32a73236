package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/blocking"
	"github.com/Eve-Ai-Labs/eve/internal/config"
	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/evaluator"
	"github.com/Eve-Ai-Labs/eve/internal/httpapi"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/task"
	"github.com/Eve-Ai-Labs/eve/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const loopbackQuic = "/ip4/127.0.0.1/udp/0/quic-v1"

func newTestRunCmd() *cobra.Command {
	var (
		path      string
		rpc       string
		nodeCount int
		ollamaURL string
		aiModel   string
	)

	cmd := &cobra.Command{
		Use:   "test-run",
		Short: "Launch a self-contained orchestrator plus N workers on loopback, for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return testRun(ctx, path, rpc, nodeCount, ollamaURL, aiModel)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "database directory; a temporary one is used and removed on exit if omitted")
	cmd.Flags().StringVarP(&rpc, "rpc", "r", "0.0.0.0:8080", "orchestrator HTTP API listen address")
	cmd.Flags().IntVarP(&nodeCount, "node-count", "n", 3, "number of workers to launch")
	cmd.Flags().StringVarP(&ollamaURL, "ollama-url", "u", "http://localhost:11434", "URL to the ollama server")
	cmd.Flags().StringVarP(&aiModel, "ai-model", "a", "deepseek-r1:8b", "model to use for the ollama server")

	return cmd
}

func testRun(ctx context.Context, path, rpc string, nodeCount int, ollamaURL, aiModel string) error {
	log := logging.New("test-run")

	dbPath := path
	if dbPath == "" {
		tmp, err := os.MkdirTemp("", "eve-test-run-*")
		if err != nil {
			return fmt.Errorf("orchestrator: creating temp storage dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		dbPath = tmp
	}

	store, err := storage.Open(dbPath+"/db", log)
	if err != nil {
		return fmt.Errorf("orchestrator: opening storage: %w", err)
	}
	defer store.Close()

	orchKey, err := identity.GenerateKey()
	if err != nil {
		return err
	}
	log.Infof("test-run: orchestrator key %s", orchKey.PublicKey())

	orchTransport, err := etp.NewTransport(ctx, log.With(logging.Fields{"role": "orch"}), etp.RoleOrchestrator, orchKey, []string{loopbackQuic})
	if err != nil {
		return fmt.Errorf("orchestrator: constructing orchestrator transport: %w", err)
	}
	defer orchTransport.Close()

	orchAddrs := orchTransport.LocalAddresses()
	if len(orchAddrs) == 0 {
		return fmt.Errorf("orchestrator: orchestrator transport advertised no listen address")
	}
	orchAddr := orchAddrs[0]
	log.Infof("test-run: orchestrator address %s", orchAddr)

	m := metrics.New(prometheus.DefaultRegisterer)
	model := ai.NewLocal(config.LLMConfig{URL: ollamaURL, Model: aiModel, MaxTokens: 1, TimeMillis: 1000, RetryLimit: 13, Timeout: 300 * time.Second}.Local(), log)
	ev := evaluator.New(orchKey, model, log)
	go ev.Run(ctx)

	pool := blocking.New(4)
	defer pool.Close()

	env := &task.Env{
		Storage:   store,
		Evaluator: ev,
		Transport: orchTransport,
		Metrics:   m,
		Config:    task.Config{ReplicationFactor: 3, TaskTimeout: 60 * time.Second},
		Log:       log,
		Blocking:  pool,
	}
	net := orchestrator.NewNetwork(store, orchTransport, pool)
	reqs := make(chan orchestrator.Request, 100)
	orch := orchestrator.New(env, net, reqs)

	apiCfg := config.ApiConfig{ReqPerHour: 1000, AirdropPerHour: 100, MaxReqLength: 10000, ClusterInfoTTLSecs: 10, ListenAddress: rpc}
	server := httpapi.New(reqs, store, m, apiCfg, config.LLMConfig{URL: ollamaURL, Model: aiModel}, log)
	httpSrv := &http.Server{Addr: rpc, Handler: server.Handler()}

	errs := make(chan error, nodeCount+2)
	go func() {
		log.Infof("test-run: HTTP API listening on %s", rpc)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("orchestrator: HTTP API: %w", err)
		}
	}()
	go func() { errs <- orch.Run(ctx, orchTransport) }()

	nodeTransports := make([]etp.Transport, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		nodeKey, err := identity.GenerateKey()
		if err != nil {
			return err
		}

		if err := net.AddNode(nodeKey.PublicKey(), nil); err != nil {
			return fmt.Errorf("orchestrator: whitelisting test node %d: %w", i, err)
		}

		nodeLog := log.With(logging.Fields{"role": "node", "index": i})
		nodeTransport, err := etp.NewTransport(ctx, nodeLog, etp.RoleNode, nodeKey, []string{loopbackQuic})
		if err != nil {
			return fmt.Errorf("orchestrator: constructing test node %d transport: %w", i, err)
		}
		nodeTransports = append(nodeTransports, nodeTransport)

		if err := nodeTransport.ConnectOrchestrator(orchKey.PublicKey(), orchAddr); err != nil {
			return fmt.Errorf("orchestrator: connecting test node %d: %w", i, err)
		}

		w := worker.New(worker.Config{OrchestratorKey: orchKey.PublicKey(), ResponseTimeout: 30 * time.Second}, nodeKey, model, m, nodeLog)
		go func(i int, t etp.Transport) {
			errs <- w.Run(ctx, t)
		}(i, nodeTransport)

		log.Infof("test-run: node %d public key %s", i, nodeKey.PublicKey())
	}

	go printClusterInfo(ctx, log, net, orchAddr, rpc)

	defer func() {
		for _, t := range nodeTransports {
			t.Close()
		}
	}()

	select {
	case err := <-errs:
		cancelHTTP(httpSrv)
		return err
	case <-ctx.Done():
		cancelHTTP(httpSrv)
		return nil
	}
}

func printClusterInfo(ctx context.Context, log logging.Logger, net *orchestrator.Network, orchAddr, rpc string) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := net.ClusterInfo()
			if err != nil {
				log.Warnf("test-run: cluster info: %v", err)
				continue
			}
			log.Infof("test-run: cluster: orchestrator=%s rpc=%s nodes=%d connected=%d", orchAddr, rpc, info.NodesCount, len(info.Connected))
		}
	}
}
