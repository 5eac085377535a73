// Package config loads the two configuration surfaces: runtime settings
// (token, timeouts, delete policy) merged from defaults, an optional YAML
// file, and CIVITAS_* environment variables; and the static governance
// templates embedded in the binary.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// StateDirName is the per-deployment state directory (logs, file store).
const StateDirName = ".civitas"

// Runtime holds deployment settings.
type Runtime struct {
	// Token authenticates the bot against the chat platform.
	Token string
	// OwnerID is the bot owner's user id; it bypasses the delete policy.
	OwnerID string
	// StateDir roots logs and the file-backed store.
	StateDir string
	// PromptTimeout bounds each individual wizard prompt, not the session.
	PromptTimeout time.Duration
	// DeleteTimeout bounds the /delete confirm prompt.
	DeleteTimeout time.Duration
	// DeleteMemberLimit: communities under this member count may be torn
	// down without owner or bot-owner privileges.
	DeleteMemberLimit int
	// PollInterval is the election-event poll period.
	PollInterval time.Duration
	Debug        bool
}

var runtimeDefaults = map[string]interface{}{
	"token":               "",
	"owner_id":            "",
	"state_dir":           StateDirName,
	"prompt_timeout":      "120s",
	"delete_timeout":      "30s",
	"delete_member_limit": 50,
	"poll_interval":       "60s",
	"debug":               false,
}

// LoadRuntime merges defaults, the optional YAML file at path, and
// environment overrides (CIVITAS_TOKEN, CIVITAS_PROMPT_TIMEOUT, ...).
// A missing file is not an error; a malformed one is.
func LoadRuntime(path string) (*Runtime, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(runtimeDefaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	err := k.Load(env.Provider("CIVITAS_", ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, "CIVITAS_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	rt := &Runtime{
		Token:             k.String("token"),
		OwnerID:           k.String("owner_id"),
		StateDir:          k.String("state_dir"),
		PromptTimeout:     k.Duration("prompt_timeout"),
		DeleteTimeout:     k.Duration("delete_timeout"),
		DeleteMemberLimit: k.Int("delete_member_limit"),
		PollInterval:      k.Duration("poll_interval"),
		Debug:             k.Bool("debug"),
	}
	if err := rt.validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) validate() error {
	if r.PromptTimeout <= 0 {
		return fmt.Errorf("config: prompt_timeout must be positive")
	}
	if r.DeleteTimeout <= 0 {
		return fmt.Errorf("config: delete_timeout must be positive")
	}
	if r.DeleteMemberLimit < 0 {
		return fmt.Errorf("config: delete_member_limit must be >= 0")
	}
	return nil
}
