package events

import (
	"sync"
	"time"

	"peptideTrackAPI/internal/achievement"
)

type UnlockEvent struct {
	UserID      string                 `json:"user_id"`
	Achievement achievement.Definition `json:"achievement"`
	Progress    int                    `json:"progress"`
	UnlockedAt  time.Time              `json:"unlocked_at"`
}

type UnlockHandler func(UnlockEvent)

// UnlockBus fans unlock events out to the handlers subscribed at publish
// time. Late subscribers do not see earlier events.
type UnlockBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]UnlockHandler
	order    []int
}

func NewUnlockBus() *UnlockBus {
	return &UnlockBus{handlers: make(map[int]UnlockHandler)}
}

// Subscribe registers fn and returns a func that removes it.
func (b *UnlockBus) Subscribe(fn UnlockHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *UnlockBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish calls every current subscriber synchronously, in subscription order.
func (b *UnlockBus) Publish(ev UnlockEvent) {
	b.mu.RLock()
	handlers := make([]UnlockHandler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (b *UnlockBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
