package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchRespond(t *testing.T) {
	Init()

	ch := Subscribe("echo")
	defer Unsubscribe(ch)

	go func() {
		for msg := range ch {
			if msg.RespondTo != 0 {
				continue
			}
			msg.Respond(msg.Data.(string)+"!", nil)
		}
	}()

	resp := Fetch(context.Background(), "echo", "say", "hi")
	require.NoError(t, resp.Error)
	require.Equal(t, "hi!", resp.Data)
	require.Equal(t, "say_response", resp.Type)
}

func TestFetchTimeout(t *testing.T) {
	Init()

	resp := FetchEx(context.Background(), "nobody", "ping", nil, 20*time.Millisecond)
	require.True(t, errors.Is(resp.Error, ErrTimeout))
}

func TestFetchCancelled(t *testing.T) {
	Init()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := Fetch(ctx, "nobody", "ping", nil)
	require.ErrorIs(t, resp.Error, context.Canceled)
}

func TestSubscribeDedup(t *testing.T) {
	Init()

	ch := Subscribe("dup", "dup")
	defer Unsubscribe(ch)

	Send("dup", "x", 1)

	select {
	case msg := <-ch:
		require.Equal(t, "x", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	select {
	case <-ch:
		t.Fatal("message delivered twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendBacklogFromManySenders(t *testing.T) {
	Init()

	ch := Subscribe("flood")
	defer Unsubscribe(ch)

	const senders, each = 8, 1000
	var wg sync.WaitGroup
	for range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				Send("flood", "tick", nil)
			}
		}()
	}

	got := 0
	deadline := time.After(10 * time.Second)
	for got < senders*each {
		select {
		case <-ch:
			got++
		case <-deadline:
			t.Fatalf("bus stalled after %d of %d messages", got, senders*each)
		}
	}
	wg.Wait()
}
