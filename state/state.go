package state

import (
	"errors"
	"sync"
)

// Phase 房间所处的对局阶段
type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 合法迁移表，单向: lobby → playing → ended
var transitions = map[Phase]map[Phase]bool{
	PhaseLobby:   {PhasePlaying: true},
	PhasePlaying: {PhaseEnded: true},
}

// Machine 阶段机。迁移只进不退，ended 为终态
type Machine struct {
	mutex   sync.RWMutex
	current Phase
}

func NewMachine() *Machine {
	return &Machine{current: PhaseLobby}
}

func (m *Machine) Current() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

func (m *Machine) Is(p Phase) bool {
	return m.Current() == p
}

func (m *Machine) Transition(to Phase) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !transitions[m.current][to] {
		return ErrTransitionNotAllowed
	}

	m.current = to
	return nil
}
