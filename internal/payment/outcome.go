// Package payment decides whether a simulated payment goes through.
package payment

import (
	"math/rand"
	"sync"
	"time"
)

const DefaultSuccessRate = 0.95

// OutcomeSource answers one payment attempt.
type OutcomeSource interface {
	Approve() bool
}

// RandomOutcome approves with a fixed probability. Safe for concurrent use.
type RandomOutcome struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

// seed 0 means seed from the clock.
func NewRandomOutcome(rate float64, seed int64) *RandomOutcome {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomOutcome{rng: rand.New(rand.NewSource(seed)), rate: rate}
}

func (r *RandomOutcome) Approve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < r.rate
}

// FixedOutcome always gives the same answer.
type FixedOutcome bool

func (f FixedOutcome) Approve() bool {
	return bool(f)
}

// ScriptedOutcome replays answers in order and then repeats the last one.
type ScriptedOutcome struct {
	mu      sync.Mutex
	answers []bool
	next    int
}

func NewScriptedOutcome(answers ...bool) *ScriptedOutcome {
	return &ScriptedOutcome{answers: answers}
}

func (s *ScriptedOutcome) Approve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 {
		return false
	}
	i := s.next
	if i >= len(s.answers) {
		i = len(s.answers) - 1
	} else {
		s.next++
	}
	return s.answers[i]
}

// 次の回答を差し替える（テストの途中で結果を変えたいとき）
func (s *ScriptedOutcome) Push(answers ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.answers) && len(s.answers) > 0 {
		s.answers = s.answers[:0]
		s.next = 0
	}
	s.answers = append(s.answers, answers...)
}
