package leaderboard

import (
	"testing"
	"time"

	"gamekit/core"
)

func TestSkipListBasic(t *testing.T) {
	now := time.Now()
	s := NewSkipList()
	s.Update(core.UserID("a"), 10, now)
	s.Update(core.UserID("b"), 20, now)
	s.Update(core.UserID("c"), 15, now)
	top := s.TopN(3)
	if len(top) != 3 || top[0].User != "b" || top[1].User != "c" || top[2].User != "a" {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.UserID("a"), 25, now)
	top = s.TopN(1)
	if top[0].User != "a" {
		t.Fatalf("top should be a, got %#v", top)
	}
	if s.Len() != 3 {
		t.Fatalf("len should stay 3 after move, got %d", s.Len())
	}
}

func TestSkipListRankAndRange(t *testing.T) {
	now := time.Now()
	s := NewSkipList()
	for i, u := range []core.UserID{"u1", "u2", "u3", "u4", "u5"} {
		s.Update(u, int64(100-i*10), now)
	}
	if r := s.Rank("u3"); r != 3 {
		t.Fatalf("rank of u3 = %d", r)
	}
	if r := s.Rank("nobody"); r != 0 {
		t.Fatalf("absent rank = %d", r)
	}
	got := s.Range(2, 2)
	if len(got) != 2 || got[0].User != "u2" || got[1].User != "u3" {
		t.Fatalf("unexpected range: %#v", got)
	}
	if got := s.Range(5, 10); len(got) != 1 || got[0].User != "u5" {
		t.Fatalf("tail range: %#v", got)
	}
	if got := s.Range(0, 3); got != nil {
		t.Fatalf("invalid range should be nil: %#v", got)
	}
}

func TestSkipListTiesAndRemove(t *testing.T) {
	now := time.Now()
	s := NewSkipList()
	s.Update("bob", 50, now)
	s.Update("alice", 50, now)
	if top := s.TopN(2); top[0].User != "alice" {
		t.Fatalf("ties break by user id: %#v", top)
	}
	s.Remove("alice")
	if _, ok := s.Get("alice"); ok {
		t.Fatal("alice should be gone")
	}
	if s.Len() != 1 || s.Rank("bob") != 1 {
		t.Fatalf("len=%d rank=%d", s.Len(), s.Rank("bob"))
	}

	var seen []core.UserID
	s.Each(func(rank int, e Entry) bool {
		seen = append(seen, e.User)
		return true
	})
	if len(seen) != 1 || seen[0] != "bob" {
		t.Fatalf("each: %v", seen)
	}
}
