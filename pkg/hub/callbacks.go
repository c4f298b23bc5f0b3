package hub

import (
	"slices"
	"sync"
)

type Handler func(args Arguments)

type registration struct {
	handler Handler
}

// CallbackMap хранит обработчики по имени target в порядке регистрации.
type CallbackMap struct {
	mu       sync.RWMutex
	handlers map[string][]*registration
}

func NewCallbackMap() *CallbackMap {
	return &CallbackMap{
		handlers: make(map[string][]*registration),
	}
}

func (m *CallbackMap) Add(target string, handler Handler) *Subscription {
	reg := &registration{handler: handler}

	m.mu.Lock()
	m.handlers[target] = append(m.handlers[target], reg)
	m.mu.Unlock()

	return &Subscription{
		callbacks: m,
		target:    target,
		reg:       reg,
	}
}

func (m *CallbackMap) Remove(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, target)
}

// Get возвращает снимок обработчиков target; изменения карты после вызова
// на снимок не влияют.
func (m *CallbackMap) Get(target string) ([]Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	regs, ok := m.handlers[target]
	if !ok || len(regs) == 0 {
		return nil, false
	}

	handlers := make([]Handler, len(regs))
	for i, reg := range regs {
		handlers[i] = reg.handler
	}

	return handlers, true
}

func (m *CallbackMap) removeRegistration(target string, reg *registration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs, ok := m.handlers[target]
	if !ok {
		return
	}

	idx := slices.Index(regs, reg)
	if idx < 0 {
		return
	}

	regs = slices.Delete(slices.Clone(regs), idx, idx+1)
	if len(regs) == 0 {
		delete(m.handlers, target)
		return
	}

	m.handlers[target] = regs
}

// Subscription позволяет снять ровно одну регистрацию, не трогая соседние.
type Subscription struct {
	callbacks *CallbackMap
	target    string
	reg       *registration
}

func (s *Subscription) Target() string {
	return s.target
}

func (s *Subscription) Unsubscribe() {
	s.callbacks.removeRegistration(s.target, s.reg)
}
