// Package config loads the orchestrator's and a worker node's on-disk
// configuration with viper, mirroring the layered base/llm/p2p/db/rpc/api/
// tasks structure of the system this module was adapted from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func saveYAML(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// BaseConfig carries the process's own keypair and, for a worker, the
// orchestrator it answers to.
type BaseConfig struct {
	Key           string `mapstructure:"key" yaml:"key"`                       // hex-encoded ed25519 seed
	OrchPublicKey string `mapstructure:"orch_pub_key" yaml:"orch_pub_key,omitempty"` // hex, worker-only
}

// LLMConfig configures the local model backend a role's Ai client talks to.
type LLMConfig struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	Model      string        `mapstructure:"model" yaml:"model"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeMillis int           `mapstructure:"time_millis" yaml:"time_millis"`
	RetryLimit int           `mapstructure:"retry_limit" yaml:"retry_limit"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

func defaultLLM() LLMConfig {
	return LLMConfig{
		URL:        "http://localhost:11434",
		Model:      "deepseek-r1:latest",
		MaxTokens:  1,
		TimeMillis: 1000,
		RetryLimit: 13,
		Timeout:    300 * time.Second,
	}
}

// LoggerConfig mirrors the filter-string logging knob every role carries.
type LoggerConfig struct {
	Filter string `mapstructure:"filter" yaml:"filter"`
}

func defaultLogger() LoggerConfig { return LoggerConfig{Filter: "info"} }

// DbConfig names the bbolt file backing storage.
type DbConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

func defaultDb() DbConfig { return DbConfig{Path: "db"} }

// RpcConfig is the orchestrator's libp2p/HTTP bind address.
type RpcConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

func defaultRpc() RpcConfig { return RpcConfig{Address: "0.0.0.0:1733"} }

// TasksConfig bounds one query's dispatch, the same knobs task.Config
// exposes to the dispatch loop.
type TasksConfig struct {
	ReplicationFactor int `mapstructure:"replication_factor" yaml:"replication_factor"`
	TaskTimeoutSecs   int `mapstructure:"task_timeout_secs" yaml:"task_timeout_secs"`
	BlockingWorkers   int `mapstructure:"blocking_workers" yaml:"blocking_workers"`
}

func defaultTasks() TasksConfig {
	return TasksConfig{ReplicationFactor: 3, TaskTimeoutSecs: 60, BlockingWorkers: 4}
}

// ApiConfig tunes the HTTP surface: rate limits, request-size cap, the
// blacklist filter and the JWT secret guarding the node-admin routes.
type ApiConfig struct {
	BlacklistWords     []string `mapstructure:"blacklist_words" yaml:"blacklist_words"`
	ReqPerHour         int      `mapstructure:"req_per_hour" yaml:"req_per_hour"`
	AirdropPerHour     int      `mapstructure:"airdrop_per_hour" yaml:"airdrop_per_hour"`
	MaxReqLength       int      `mapstructure:"max_req_length" yaml:"max_req_length"`
	JwtSecret          string   `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	ClusterInfoTTLSecs int      `mapstructure:"cluster_info_ttl_secs" yaml:"cluster_info_ttl_secs"`
	ListenAddress      string   `mapstructure:"listen_address" yaml:"listen_address"`
}

const defaultDevJwtSecret = "c9ec179a3fbc9f22cb2370fef360604235f412ac953d9bb2f5616deb7d98bc7"

func defaultApi() ApiConfig {
	return ApiConfig{
		BlacklistWords:     nil,
		ReqPerHour:         100,
		AirdropPerHour:     10,
		MaxReqLength:       10000,
		JwtSecret:          defaultDevJwtSecret,
		ClusterInfoTTLSecs: 10,
		ListenAddress:      "0.0.0.0:8080",
	}
}

// P2PConfig lists the multiaddrs a role listens on and, for a worker, the
// single orchestrator address it dials.
type P2PConfig struct {
	Addresses   []string `mapstructure:"addresses" yaml:"addresses"`
	OrchAddress string   `mapstructure:"orch_address" yaml:"orch_address,omitempty"` // worker-only
}

// OrchestratorConfig is the full configuration tree for `orchestrator run`.
type OrchestratorConfig struct {
	Base   BaseConfig   `mapstructure:"base" yaml:"base"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Db     DbConfig     `mapstructure:"db" yaml:"db"`
	Rpc    RpcConfig    `mapstructure:"rpc" yaml:"rpc"`
	Tasks  TasksConfig  `mapstructure:"tasks" yaml:"tasks"`
	Api    ApiConfig    `mapstructure:"api" yaml:"api"`
	P2P    P2PConfig    `mapstructure:"p2p" yaml:"p2p"`
}

// NodeConfig is the full configuration tree for a worker's `run`.
type NodeConfig struct {
	Base   BaseConfig   `mapstructure:"base" yaml:"base"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	P2P    P2PConfig    `mapstructure:"p2p" yaml:"p2p"`
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return v
}

// IsNodeConfig peeks at path without fully validating it, reporting
// whether it looks like a worker config (carries base.orch_pub_key) as
// opposed to an orchestrator config. `run` uses this to pick which loader
// to use, mirroring the original's single Config enum dispatch.
func IsNodeConfig(path string) (bool, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return false, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return v.GetString("base.orch_pub_key") != "", nil
}

// SaveOrchestrator writes cfg to path as YAML, creating parent directories
// as needed.
func SaveOrchestrator(path string, cfg OrchestratorConfig) error {
	return saveYAML(path, cfg)
}

// SaveNode writes cfg to path as YAML, creating parent directories as
// needed.
func SaveNode(path string, cfg NodeConfig) error {
	return saveYAML(path, cfg)
}

// LoadOrchestrator reads and validates an orchestrator config file at path.
func LoadOrchestrator(path string) (OrchestratorConfig, error) {
	cfg := OrchestratorConfig{
		LLM:    defaultLLM(),
		Logger: defaultLogger(),
		Db:     defaultDb(),
		Rpc:    defaultRpc(),
		Tasks:  defaultTasks(),
		Api:    defaultApi(),
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if cfg.Base.Key == "" {
		return cfg, fmt.Errorf("config: base.key is required")
	}
	if len(cfg.P2P.Addresses) == 0 {
		return cfg, fmt.Errorf("config: p2p.addresses must list at least one listen address")
	}
	return cfg, nil
}

// LoadNode reads and validates a worker config file at path.
func LoadNode(path string) (NodeConfig, error) {
	cfg := NodeConfig{
		LLM:    defaultLLM(),
		Logger: defaultLogger(),
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if cfg.Base.Key == "" {
		return cfg, fmt.Errorf("config: base.key is required")
	}
	if cfg.Base.OrchPublicKey == "" {
		return cfg, fmt.Errorf("config: base.orch_pub_key is required")
	}
	if cfg.P2P.OrchAddress == "" {
		return cfg, fmt.Errorf("config: p2p.orch_address is required")
	}
	return cfg, nil
}

// PrivateKey decodes base.key into an identity.PrivateKey.
func (b BaseConfig) PrivateKey() (identity.PrivateKey, error) {
	seed, err := decodeHexSeed(b.Key)
	if err != nil {
		return identity.PrivateKey{}, fmt.Errorf("config: base.key: %w", err)
	}
	return identity.PrivateKeyFromSeed(seed)
}

// OrchestratorPublicKey decodes base.orch_pub_key for a worker config.
func (b BaseConfig) OrchestratorPublicKey() (identity.PublicKey, error) {
	return identity.PublicKeyFromHex(b.OrchPublicKey)
}

// LLM builds the ai.Local client config from the loaded LLMConfig.
func (c LLMConfig) Local() ai.LocalConfig {
	return ai.LocalConfig{
		BaseURL:             c.URL,
		Model:               c.Model,
		Timeout:             c.Timeout,
		RetryLimit:          c.RetryLimit,
		RequestsPerInterval: c.MaxTokens,
		Interval:            time.Duration(c.TimeMillis) * time.Millisecond,
	}
}

// TaskTimeout returns the configured per-query deadline as a Duration.
func (t TasksConfig) TaskTimeout() time.Duration {
	return time.Duration(t.TaskTimeoutSecs) * time.Second
}
