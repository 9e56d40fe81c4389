package leaderboard

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"gamekit/core"
)

// A skip list keyed by (score desc, user asc) to achieve O(log n) updates.

const maxLevel = 16
const pFactor = 0.25

type node struct {
	e    Entry
	next [maxLevel]*node
}

type SkipList struct {
	mu     sync.RWMutex
	head   *node
	lvl    int
	size   int
	byUser map[core.UserID]*node
	rng    *rand.Rand
}

func NewSkipList() *SkipList {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	return &SkipList{
		head:   &node{},
		lvl:    1,
		byUser: map[core.UserID]*node{},
		rng:    rand.New(rand.NewPCG(binary.BigEndian.Uint64(seed[:8]), binary.BigEndian.Uint64(seed[8:]))),
	}
}

func (s *SkipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

func less(a, b Entry) bool {
	if a.Score == b.Score {
		return a.User < b.User
	}
	return a.Score > b.Score
}

// Update inserts the user or moves them to the new score.
func (s *SkipList) Update(user core.UserID, score int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[user]; ok {
		s.removeLocked(user, old.e)
	}
	e := Entry{User: user, Score: score, Updated: at}
	var update [maxLevel]*node
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
		}
		s.lvl = lvl
	}
	n := &node{e: e}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.byUser[user] = n
	s.size++
}

func (s *SkipList) removeLocked(user core.UserID, e Entry) {
	var update [maxLevel]*node
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	target := update[0].next[0]
	if target == nil || target.e.User != user {
		return
	}
	for i := 0; i < s.lvl; i++ {
		if update[i].next[i] == target {
			update[i].next[i] = target.next[i]
		}
	}
	delete(s.byUser, user)
	s.size--
	for s.lvl > 1 && s.head.next[s.lvl-1] == nil {
		s.lvl--
	}
}

func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byUser[user]; ok {
		s.removeLocked(user, n.e)
	}
}

func (s *SkipList) TopN(n int) []Entry {
	return s.Range(1, n)
}

// Range returns up to count entries starting at fromRank.
func (s *SkipList) Range(fromRank, count int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fromRank < 1 || count <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(count, s.size))
	rank := 1
	for cur := s.head.next[0]; cur != nil && len(out) < count; cur = cur.next[0] {
		if rank >= fromRank {
			out = append(out, cur.e)
		}
		rank++
	}
	return out
}

func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.byUser[user]; ok {
		return n.e, true
	}
	return Entry{}, false
}

// Rank returns the 1-based position of user, or 0 when absent.
func (s *SkipList) Rank(user core.UserID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byUser[user]; !ok {
		return 0
	}
	rank := 1
	for cur := s.head.next[0]; cur != nil; cur = cur.next[0] {
		if cur.e.User == user {
			return rank
		}
		rank++
	}
	return 0
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Each walks entries in rank order until fn returns false.
// fn must not call back into the list.
func (s *SkipList) Each(fn func(rank int, e Entry) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rank := 1
	for cur := s.head.next[0]; cur != nil; cur = cur.next[0] {
		if !fn(rank, cur.e) {
			return
		}
		rank++
	}
}

var _ Board = (*SkipList)(nil)
