package widget

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ScriptLoader loads each script into a host at most once. Concurrent loads
// of the same src share the in-flight one.
type ScriptLoader struct {
	host   Host
	group  singleflight.Group
	mu     sync.Mutex
	loaded map[string]bool
}

func NewScriptLoader(h Host) *ScriptLoader {
	return &ScriptLoader{host: h, loaded: map[string]bool{}}
}

func (l *ScriptLoader) IsLoaded(src string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[src]
}

// Load returns once src is loaded. A cancelled ctx detaches the caller but
// does not abort a load other callers may be waiting on.
func (l *ScriptLoader) Load(ctx context.Context, src string) error {
	if l.IsLoaded(src) {
		return nil
	}

	ch := l.group.DoChan(src, func() (any, error) {
		if l.IsLoaded(src) {
			return nil, nil
		}
		log.Debug().Str("src", src).Msg("loading script")
		err := l.host.LoadScript(context.WithoutCancel(ctx), src)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded[src] = true
		l.mu.Unlock()
		return nil, nil
	})

	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
