package ws

import (
	"sync"
)

type listener struct {
	id int
	fn func(args ...any)
}

// listenerManager keeps the process side listeners of page objects
// (providers and widgets). The page is asked to forward an event only once
// per object.
type listenerManager struct {
	nextId    int
	subs      map[string][]listener // "<object id>/<event>" -> listeners
	forwarded map[string]bool
	mutex     sync.Mutex
}

func newListenerManager() *listenerManager {
	return &listenerManager{
		subs:      make(map[string][]listener),
		forwarded: make(map[string]bool),
	}
}

func listenerKey(object, event string) string {
	return object + "/" + event
}

// add registers fn and reports whether the page still has to be asked to
// forward the event.
func (lm *listenerManager) add(object, event string, fn func(args ...any)) (int, bool) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	key := listenerKey(object, event)
	lm.nextId++
	lm.subs[key] = append(lm.subs[key], listener{id: lm.nextId, fn: fn})

	first := !lm.forwarded[key]
	lm.forwarded[key] = true
	return lm.nextId, first
}

func (lm *listenerManager) remove(object, event string, id int) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	key := listenerKey(object, event)
	for i, l := range lm.subs[key] {
		if l.id == id {
			lm.subs[key] = append(lm.subs[key][:i], lm.subs[key][i+1:]...)
			return
		}
	}
}

func (lm *listenerManager) get(object, event string) []listener {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	return append([]listener(nil), lm.subs[listenerKey(object, event)]...)
}

func (lm *listenerManager) count() int {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	n := 0
	for _, l := range lm.subs {
		n += len(l)
	}
	return n
}
