// Package keylock はキーごとの排他ロックを提供します。
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker はキー単位で独立したミューテックスを払い出します。
// 使われなくなったキーのミューテックスは解放されます。
type Locker[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New は空の Locker を生成します。
func New[K comparable]() *Locker[K] {
	return &Locker[K]{entries: make(map[K]*entry)}
}

// Lock はキーのロックを取得し、解放関数を返します。
func (l *Locker[K]) Lock(key K) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len は現在保持しているキー数を返します。
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
