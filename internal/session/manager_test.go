package session

import "testing"

func TestSubscribeDeliversCurrentIdentity(t *testing.T) {
	m := NewManager()
	m.SignIn("user-1")

	ch, cancel := m.Subscribe()
	defer cancel()

	if got := <-ch; got != "user-1" {
		t.Fatalf("expected current identity on subscribe, got %q", got)
	}
}

func TestIdentityChangesAreBroadcast(t *testing.T) {
	m := NewManager()
	ch, cancel := m.Subscribe()
	defer cancel()

	if got := <-ch; got != "" {
		t.Fatalf("expected signed-out initial identity, got %q", got)
	}

	m.SignIn("user-1")
	if got := <-ch; got != "user-1" {
		t.Fatalf("expected user-1 after sign-in, got %q", got)
	}

	m.SignOut()
	if got := <-ch; got != "" {
		t.Fatalf("expected empty identity after sign-out, got %q", got)
	}
}

func TestRepeatSignInDoesNotRebroadcast(t *testing.T) {
	m := NewManager()
	m.SignIn("user-1")

	ch, cancel := m.Subscribe()
	defer cancel()
	<-ch

	m.SignIn("user-1")
	select {
	case got := <-ch:
		t.Fatalf("unexpected broadcast %q for unchanged identity", got)
	default:
	}
}

func TestLaggySubscriberSeesLatestOnly(t *testing.T) {
	m := NewManager()
	ch, cancel := m.Subscribe()
	defer cancel()

	m.SignIn("user-1")
	m.SignIn("user-2")

	// Initial empty identity was overwritten, then user-1 was dropped in
	// favor of user-2.
	if got := <-ch; got != "user-2" {
		t.Fatalf("expected latest identity user-2, got %q", got)
	}
}

func TestCancelReleasesSubscription(t *testing.T) {
	m := NewManager()
	ch, cancel := m.Subscribe()
	<-ch
	cancel()
	cancel() // safe to call twice

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	m.SignIn("user-1") // must not panic on the removed subscriber
}
