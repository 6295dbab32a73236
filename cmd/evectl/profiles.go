package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	defaultProfile = "default"
	defaultSession = "default"
)

// Profile is one named identity evectl can act as: an RPC endpoint, a
// keypair, and a set of named chat sessions remembering the last QueryId
// sent under that name so a follow-up `answer` can omit it.
type Profile struct {
	RPC     string            `yaml:"rpc"`
	Public  string            `yaml:"public"`
	Private string            `yaml:"private"`
	Session map[string]string `yaml:"session"`
}

// Profiles is the full on-disk set of profiles, keyed by name.
type Profiles map[string]*Profile

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("evectl: locating home directory: %w", err)
	}
	return filepath.Join(home, ".eve", "evectl.yaml"), nil
}

// loadProfiles reads the profile file, returning an empty set if it
// doesn't exist yet.
func loadProfiles() (Profiles, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Profiles{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evectl: reading %s: %w", path, err)
	}
	profiles := Profiles{}
	if err := yaml.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("evectl: parsing %s: %w", path, err)
	}
	return profiles, nil
}

func (p Profiles) save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("evectl: creating %s: %w", filepath.Dir(path), err)
	}
	out, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func (p Profiles) get(name string) (*Profile, error) {
	profile, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("evectl: profile %q not found", name)
	}
	return profile, nil
}

// setSession remembers id as the last QueryId sent under session within
// profile, then persists the whole profile set.
func (p Profiles) setSession(profileName, session string, id types.QueryId) error {
	profile, err := p.get(profileName)
	if err != nil {
		return err
	}
	if profile.Session == nil {
		profile.Session = map[string]string{}
	}
	profile.Session[session] = id.String()
	return p.save()
}

func (pr *Profile) sessionQueryID(name string) (types.QueryId, bool) {
	raw, ok := pr.Session[name]
	if !ok {
		return types.QueryId{}, false
	}
	id, err := types.QueryIdFromHex(raw)
	if err != nil {
		return types.QueryId{}, false
	}
	return id, true
}

func (pr *Profile) privateKey() (identity.PrivateKey, error) {
	seed, err := hex.DecodeString(pr.Private)
	if err != nil {
		return identity.PrivateKey{}, fmt.Errorf("evectl: decoding profile private key: %w", err)
	}
	return identity.PrivateKeyFromSeed(seed)
}

func (pr *Profile) client() *client {
	return newClient(pr.RPC)
}
