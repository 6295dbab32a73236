package config

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestOrchestratorSaveLoadRoundTrip(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "orch", "config.yaml")
	want := OrchestratorConfig{
		Base:   BaseConfig{Key: hex.EncodeToString(key.Seed())},
		LLM:    defaultLLM(),
		Logger: defaultLogger(),
		Db:     defaultDb(),
		Rpc:    defaultRpc(),
		Tasks:  defaultTasks(),
		Api:    defaultApi(),
		P2P:    P2PConfig{Addresses: []string{"/ip4/0.0.0.0/udp/1733/quic-v1"}},
	}

	require.NoError(t, SaveOrchestrator(path, want))

	isNode, err := IsNodeConfig(path)
	require.NoError(t, err)
	require.False(t, isNode)

	got, err := LoadOrchestrator(path)
	require.NoError(t, err)
	require.Equal(t, want.Base.Key, got.Base.Key)
	require.Equal(t, want.P2P.Addresses, got.P2P.Addresses)
	require.Equal(t, want.LLM, got.LLM)
}

func TestNodeSaveLoadRoundTrip(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	orchKey, err := identity.GenerateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "node_0", "config.yaml")
	want := NodeConfig{
		Base: BaseConfig{
			Key:           hex.EncodeToString(key.Seed()),
			OrchPublicKey: orchKey.PublicKey().String(),
		},
		LLM:    defaultLLM(),
		Logger: defaultLogger(),
		P2P: P2PConfig{
			Addresses:   []string{"/ip4/0.0.0.0/udp/0/quic-v1"},
			OrchAddress: "/ip4/127.0.0.1/udp/1733/quic-v1",
		},
	}

	require.NoError(t, SaveNode(path, want))

	isNode, err := IsNodeConfig(path)
	require.NoError(t, err)
	require.True(t, isNode)

	got, err := LoadNode(path)
	require.NoError(t, err)
	require.Equal(t, want.Base, got.Base)
	require.Equal(t, want.P2P, got.P2P)

	privKey, err := got.Base.PrivateKey()
	require.NoError(t, err)
	require.Equal(t, key.PublicKey(), privKey.PublicKey())

	orchPub, err := got.Base.OrchestratorPublicKey()
	require.NoError(t, err)
	require.Equal(t, orchKey.PublicKey(), orchPub)
}

func TestLoadOrchestratorRejectsMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := OrchestratorConfig{P2P: P2PConfig{Addresses: []string{"/ip4/0.0.0.0/udp/1733/quic-v1"}}}
	require.NoError(t, SaveOrchestrator(path, cfg))

	_, err := LoadOrchestrator(path)
	require.Error(t, err)
}

func TestLoadNodeRejectsMissingOrchPublicKey(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := NodeConfig{
		Base: BaseConfig{Key: hex.EncodeToString(key.Seed())},
		P2P:  P2PConfig{OrchAddress: "/ip4/127.0.0.1/udp/1733/quic-v1"},
	}
	require.NoError(t, SaveNode(path, cfg))

	_, err = LoadNode(path)
	require.Error(t, err)
}
