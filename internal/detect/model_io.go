package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// modelStore persists a trained model as JSON on disk. Saves go through a
// temp file and rename so a crash mid-write never leaves a truncated model.
type modelStore struct {
	path string
}

func newModelStore(path string) *modelStore {
	return &modelStore{path: path}
}

// Save writes the model to disk, creating parent directories as needed.
func (s *modelStore) Save(m *model) error {
	if s.path == "" || m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace model: %w", err)
	}
	return nil
}

// Load reads a previously saved model. A missing file returns (nil, nil);
// the detector simply starts untrained.
func (s *modelStore) Load() (*model, error) {
	if s.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if m.Forest == nil || m.Scaler == nil {
		return nil, fmt.Errorf("model file %s is incomplete", s.path)
	}
	return &m, nil
}
