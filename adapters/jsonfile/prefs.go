package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Prefs keeps integer preferences in memory and writes them to a single JSON file on Save.
// Suitable for a device-local preference file.
type Prefs struct {
	path  string
	mu    sync.Mutex
	ints  map[string]int64
	dirty bool
}

func New(path string) (*Prefs, error) {
	p := &Prefs{path: path, ints: map[string]int64{}}
	if err := p.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prefs) load() error {
	b, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &p.ints)
}

func (p *Prefs) persist() error {
	tmp := p.path + ".tmp"
	b, err := json.MarshalIndent(p.ints, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}

func (p *Prefs) GetInt(_ context.Context, key string, def int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.ints[key]; ok {
		return v, nil
	}
	return def, nil
}

func (p *Prefs) SetInt(_ context.Context, key string, value int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.ints[key]; ok && cur == value {
		return nil
	}
	p.ints[key] = value
	p.dirty = true
	return nil
}

// Save writes pending changes atomically (temp file then rename).
func (p *Prefs) Save(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return nil
	}
	if err := p.persist(); err != nil {
		return err
	}
	p.dirty = false
	return nil
}
