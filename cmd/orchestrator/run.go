package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/blocking"
	"github.com/Eve-Ai-Labs/eve/internal/config"
	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/evaluator"
	"github.com/Eve-Ai-Labs/eve/internal/httpapi"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/task"
	"github.com/Eve-Ai-Labs/eve/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const configName = "config.yaml"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Launch the orchestrator or a worker node from an on-disk config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := nodePathDefault
			if len(args) == 1 {
				path = args[0]
			}
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, configName)
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("orchestrator: configuration file not found: %s", path)
			}

			isNode, err := config.IsNodeConfig(path)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if isNode {
				return runNode(ctx, path)
			}
			return runOrchestrator(ctx, path)
		},
	}
	return cmd
}

func runNode(ctx context.Context, path string) error {
	cfg, err := config.LoadNode(path)
	if err != nil {
		return fmt.Errorf("orchestrator: loading node config: %w", err)
	}
	log := logging.NewWithFilter("node", cfg.Logger.Filter)

	key, err := cfg.Base.PrivateKey()
	if err != nil {
		return err
	}
	orchKey, err := cfg.Base.OrchestratorPublicKey()
	if err != nil {
		return err
	}

	transport, err := etp.NewTransport(ctx, log, etp.RoleNode, key, cfg.P2P.Addresses)
	if err != nil {
		return fmt.Errorf("orchestrator: constructing transport: %w", err)
	}
	defer transport.Close()

	if err := transport.ConnectOrchestrator(orchKey, cfg.P2P.OrchAddress); err != nil {
		return fmt.Errorf("orchestrator: connecting to orchestrator: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	model := ai.NewLocal(cfg.LLM.Local(), log)
	w := worker.New(worker.Config{OrchestratorKey: orchKey, ResponseTimeout: 30 * time.Second}, key, model, m, log)

	log.Infof("node: public key %s, orchestrator %s", key.PublicKey(), orchKey)
	return w.Run(ctx, transport)
}

func runOrchestrator(ctx context.Context, path string) error {
	cfg, err := config.LoadOrchestrator(path)
	if err != nil {
		return fmt.Errorf("orchestrator: loading orchestrator config: %w", err)
	}
	log := logging.NewWithFilter("orchestrator", cfg.Logger.Filter)

	key, err := cfg.Base.PrivateKey()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Db.Path, log)
	if err != nil {
		return fmt.Errorf("orchestrator: opening storage: %w", err)
	}
	defer store.Close()

	transport, err := etp.NewTransport(ctx, log, etp.RoleOrchestrator, key, cfg.P2P.Addresses)
	if err != nil {
		return fmt.Errorf("orchestrator: constructing transport: %w", err)
	}
	defer transport.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	model := ai.NewLocal(cfg.LLM.Local(), log)
	ev := evaluator.New(key, model, log)
	go ev.Run(ctx)

	pool := blocking.New(cfg.Tasks.BlockingWorkers)
	defer pool.Close()

	env := &task.Env{
		Storage:   store,
		Evaluator: ev,
		Transport: transport,
		Metrics:   m,
		Config: task.Config{
			ReplicationFactor: cfg.Tasks.ReplicationFactor,
			TaskTimeout:       cfg.Tasks.TaskTimeout(),
		},
		Log:      log,
		Blocking: pool,
	}
	net := orchestrator.NewNetwork(store, transport, pool)
	reqs := make(chan orchestrator.Request, 100)
	orch := orchestrator.New(env, net, reqs)

	server := httpapi.New(reqs, store, m, cfg.Api, cfg.LLM, log)
	httpSrv := &http.Server{Addr: cfg.Api.ListenAddress, Handler: server.Handler()}

	errs := make(chan error, 2)
	go func() {
		log.Infof("orchestrator: HTTP API listening on %s", cfg.Api.ListenAddress)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("orchestrator: HTTP API: %w", err)
		}
	}()
	go func() {
		errs <- orch.Run(ctx, transport)
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

func cancelHTTP(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
