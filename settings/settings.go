// Package settings stores per-user translator credentials for bbt.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/bbt/settings.json  (default: ~/.local/share/bbt/settings.json)
//
// The file is a JSON object keyed by translator ID (google, deepl, chatgpt)
// and is written with 0600 permissions.
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. BBT_<TRANSLATOR>_KEY environment variable, which may come from a .env
//     file in the project root
//  3. This settings file
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	dataDirName = "bbt"
	fileName    = "settings.json"
)

// Translators lists the IDs that can hold credentials.
var Translators = []string{"google", "deepl", "chatgpt"}

// Info is the entry stored per translator.
type Info struct {
	Key string `json:"key,omitempty"`
	// BaseURL overrides the translator's default endpoint.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all translator credentials, keyed by translator ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the bbt data directory.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the settings file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the store from disk. A missing or unreadable file yields an
// empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a translator, or nil.
func Get(id string) *Info {
	return Load()[id]
}

// Set stores an entry for a translator, replacing any previous one.
func Set(id string, info *Info) error {
	store := Load()
	store[id] = info
	return Save(store)
}

// SetAPIKey stores an API key, keeping a previously stored base URL.
func SetAPIKey(id, key string) error {
	store := Load()
	info := store[id]
	if info == nil {
		info = &Info{}
	}
	info.Key = key
	store[id] = info
	return Save(store)
}

// SetBaseURL stores an endpoint override, keeping a previously stored key.
func SetBaseURL(id, baseURL string) error {
	store := Load()
	info := store[id]
	if info == nil {
		info = &Info{}
	}
	info.BaseURL = baseURL
	store[id] = info
	return Save(store)
}

// GetAPIKey returns the stored API key, or "".
func GetAPIKey(id string) string {
	if info := Get(id); info != nil {
		return info.Key
	}
	return ""
}

// GetBaseURL returns the stored base URL, or "".
func GetBaseURL(id string) string {
	if info := Get(id); info != nil {
		return info.BaseURL
	}
	return ""
}

// Remove deletes the entry for a translator.
func Remove(id string) error {
	store := Load()
	if _, ok := store[id]; !ok {
		return nil
	}
	delete(store, id)
	return Save(store)
}

// RemoveAll deletes the settings file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing settings file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// EnvVar returns the environment variable consulted for a translator's
// API key, e.g. BBT_GOOGLE_KEY.
func EnvVar(id string) string {
	return "BBT_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_KEY"
}

// LoadDotEnv loads dir/.env into the process environment. Variables that are
// already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ResolveAPIKey applies the lookup order: flag, environment, settings file.
func ResolveAPIKey(id, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvVar(id)); v != "" {
		return v
	}
	return GetAPIKey(id)
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
