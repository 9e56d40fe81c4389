package core

import (
	"errors"
	"fmt"
	"strings"
)

// Leaderboard maps a human-readable name to the platform's leaderboard id.
type Leaderboard struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

// Achievement maps a human-readable name to the platform's achievement id.
type Achievement struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

// Catalog is the static configuration table of known leaderboards and achievements.
type Catalog struct {
	Leaderboards []Leaderboard `json:"leaderboards" yaml:"leaderboards"`
	Achievements []Achievement `json:"achievements" yaml:"achievements"`
}

// LeaderboardByName returns the leaderboard declared with exactly this name.
func (c *Catalog) LeaderboardByName(name string) (Leaderboard, bool) {
	if c == nil {
		return Leaderboard{}, false
	}
	for _, lb := range c.Leaderboards {
		if lb.Name == name {
			return lb, true
		}
	}
	return Leaderboard{}, false
}

// AchievementByName returns the achievement declared with exactly this name.
func (c *Catalog) AchievementByName(name string) (Achievement, bool) {
	if c == nil {
		return Achievement{}, false
	}
	for _, a := range c.Achievements {
		if a.Name == name {
			return a, true
		}
	}
	return Achievement{}, false
}

// Validate rejects empty entries and duplicated names.
func (c *Catalog) Validate() error {
	var errs []string
	seen := map[string]struct{}{}
	for i, lb := range c.Leaderboards {
		if strings.TrimSpace(lb.Name) == "" {
			errs = append(errs, fmt.Sprintf("leaderboards[%d]: empty name", i))
		}
		if err := ValidateID(lb.ID); err != nil {
			errs = append(errs, fmt.Sprintf("leaderboards[%d]: %v", i, err))
		}
		if _, dup := seen[lb.Name]; dup {
			errs = append(errs, fmt.Sprintf("leaderboards[%d]: duplicate name %q", i, lb.Name))
		}
		seen[lb.Name] = struct{}{}
	}
	seen = map[string]struct{}{}
	for i, a := range c.Achievements {
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, fmt.Sprintf("achievements[%d]: empty name", i))
		}
		if err := ValidateID(a.ID); err != nil {
			errs = append(errs, fmt.Sprintf("achievements[%d]: %v", i, err))
		}
		if _, dup := seen[a.Name]; dup {
			errs = append(errs, fmt.Sprintf("achievements[%d]: duplicate name %q", i, a.Name))
		}
		seen[a.Name] = struct{}{}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
