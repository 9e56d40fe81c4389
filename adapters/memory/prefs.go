package memory

import (
	"context"
	"sync"
)

// Prefs is a volatile PrefsStore. Save is a no-op.
type Prefs struct {
	mu   sync.Mutex
	ints map[string]int64
}

func NewPrefs() *Prefs { return &Prefs{ints: map[string]int64{}} }

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
	p.ints[key] = value
	return nil
}

func (p *Prefs) Save(context.Context) error { return nil }

var _ interface {
	GetInt(context.Context, string, int64) (int64, error)
	SetInt(context.Context, string, int64) error
	Save(context.Context) error
} = (*Prefs)(nil)
