package history

import (
	"encoding/json"
	"fmt"
	"os"
)

// FilePort persists the store as a single JSON file keyed by item id.
type FilePort struct {
	Path string
}

// NewFilePort returns a file-backed persistence port at the given path.
func NewFilePort(path string) *FilePort {
	return &FilePort{Path: path}
}

// Load reads the history file. A missing file is a fresh start, not an
// error; anything unreadable or unparseable is reported to the caller.
func (p *FilePort) Load() (map[int][]Sample, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[int][]Sample), nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}
	var data map[int][]Sample
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse history file: %w", err)
	}
	if data == nil {
		data = make(map[int][]Sample)
	}
	return data, nil
}

// Save writes the full store contents to the history file.
func (p *FilePort) Save(data map[int][]Sample) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.WriteFile(p.Path, raw, 0o644); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}
