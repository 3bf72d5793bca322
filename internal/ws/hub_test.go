package ws

import (
	"testing"

	"github.com/google/uuid"
)

func TestHubDeliversToOwnSocketsOnly(t *testing.T) {
	hub := NewHub()
	alice := uuid.New()
	bob := uuid.New()

	a1 := NewClient(alice, nil)
	a2 := NewClient(alice, nil)
	b1 := NewClient(bob, nil)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b1)

	hub.NotifyBalances(alice, 10, 1, 0.5)

	for _, c := range []*Client{a1, a2} {
		select {
		case ev := <-c.send:
			if ev.Type != "balances_updated" {
				t.Fatalf("unexpected event type %q", ev.Type)
			}
			if ev.CcoxBalance != 10 || ev.UsdtBalance != 1 || ev.LockedBalance != 0.5 {
				t.Fatalf("unexpected payload %+v", ev)
			}
		default:
			t.Fatal("expected event for alice's socket")
		}
	}

	select {
	case <-b1.send:
		t.Fatal("bob must not receive alice's event")
	default:
	}
}

func TestHubUnregisterClosesAndForgets(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	c := NewClient(userID, nil)

	hub.Register(c)
	if got := hub.ClientCount(userID); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}

	hub.Unregister(c)
	if got := hub.ClientCount(userID); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}

	// double unregister is a no-op
	hub.Unregister(c)

	if _, open := <-c.send; open {
		t.Fatal("send channel should be closed")
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	c := NewClient(userID, nil)
	hub.Register(c)

	// fill the buffer without draining
	for i := 0; i < sendBuffer; i++ {
		hub.NotifyBalances(userID, float64(i), 0, 0)
	}
	hub.NotifyBalances(userID, 99, 0, 0)

	if got := hub.ClientCount(userID); got != 0 {
		t.Fatalf("slow consumer should have been dropped, got %d clients", got)
	}
}

func TestHubNotifyUnknownUserIsNoop(t *testing.T) {
	hub := NewHub()
	hub.NotifyBalances(uuid.New(), 1, 2, 3)
}
