// Package notifications allocates identifiers for locally scheduled notifications.
package notifications

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// CurrentIDKey is the prefs key holding the last allocated id.
const CurrentIDKey = "local_notif_current_id"

// Prefs is the subset of a preference store the allocator needs.
type Prefs interface {
	GetInt(ctx context.Context, key string, def int64) (int64, error)
	SetInt(ctx context.Context, key string, value int64) error
	Save(ctx context.Context) error
}

// IDAllocator hands out increasing notification ids that survive restarts.
// After math.MaxInt32 the counter wraps to 1.
type IDAllocator struct {
	prefs  Prefs
	prefix string
	mu     sync.Mutex
}

func NewIDAllocator(prefs Prefs, prefix string) *IDAllocator {
	if prefs == nil {
		panic("NewIDAllocator requires non-nil prefs")
	}
	return &IDAllocator{prefs: prefs, prefix: prefix}
}

// Next persists and returns the next id, rendered as prefix + decimal.
func (a *IDAllocator) Next(ctx context.Context) (string, error) {
	n, err := a.NextNumber(ctx)
	if err != nil {
		return "", err
	}
	return a.prefix + strconv.FormatInt(n, 10), nil
}

func (a *IDAllocator) NextNumber(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, err := a.prefs.GetInt(ctx, CurrentIDKey, 0)
	if err != nil {
		return 0, fmt.Errorf("read notification id: %w", err)
	}
	next := cur + 1
	if cur >= math.MaxInt32 || cur < 0 {
		next = 1
	}
	if err := a.prefs.SetInt(ctx, CurrentIDKey, next); err != nil {
		return 0, fmt.Errorf("write notification id: %w", err)
	}
	if err := a.prefs.Save(ctx); err != nil {
		return 0, fmt.Errorf("save notification id: %w", err)
	}
	return next, nil
}
