package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Tokens is the persisted login state.
type Tokens struct {
	Username string `json:"username"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

type tokenFile struct {
	path string
}

// Load returns the saved tokens; a missing file means logged out.
func (f *tokenFile) Load() (Tokens, error) {
	var t Tokens
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return t, errors.Wrap(err, "read token file")
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, errors.Wrapf(err, "parse token file %s", f.path)
	}
	return t, nil
}

func (f *tokenFile) Save(t Tokens) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode tokens")
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write token file")
	}
	return nil
}

func (f *tokenFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove token file")
	}
	return nil
}
