package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultConfigPath returns <userHome>/.tunneller/tunneller-config.json.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tunneller", "tunneller-config.json"), nil
}

// Load reads and unmarshals the Document at path. If the file does not
// exist, it returns Defaults() with no error; the file is created by the
// first Save (the agent command saves on shutdown).
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Save marshals doc and writes it to path, creating parent directories as
// needed.
func Save(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Save persists the store's current document to path.
func (s *Store) Save(path string) error {
	return Save(path, s.Snapshot())
}
