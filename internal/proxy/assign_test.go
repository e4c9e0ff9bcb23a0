package proxy

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/scanherd/scanherd/internal/model"
)

// newTestIdentities returns n identities with distinct addresses.
func newTestIdentities(n int) []*model.Identity {
	identities := make([]*model.Identity, 0, n)
	for i := 0; i < n; i++ {
		identities = append(identities, model.NewIdentity(
			fmt.Sprintf("0x%040d", i),
			fmt.Sprintf("secret-%d", i),
		))
	}
	return identities
}

// TestAssign_RoundRobin tests the deterministic cyclic assignment.
func TestAssign_RoundRobin(t *testing.T) {
	t.Parallel()

	identities := newTestIdentities(5)
	proxies := []string{
		"http://10.0.0.1:8080",
		"socks5://10.0.0.2:1080",
	}

	errs := Assign(identities, proxies, true)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	wantHosts := []string{"10.0.0.1", "10.0.0.2", "10.0.0.1", "10.0.0.2", "10.0.0.1"}
	for i, identity := range identities {
		if identity.Proxy == nil {
			t.Fatalf("identity %d: expected a proxy, got nil", i)
		}
		if identity.Proxy.Host != wantHosts[i] {
			t.Errorf("identity %d: Host = %q, expected %q", i, identity.Proxy.Host, wantHosts[i])
		}
	}
}

// TestAssign_SingleProxySharedByAll tests that one proxy serves every
// identity when the list has a single entry.
func TestAssign_SingleProxySharedByAll(t *testing.T) {
	t.Parallel()

	identities := newTestIdentities(3)

	errs := Assign(identities, []string{"10.0.0.9:3128"}, true)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	for i, identity := range identities {
		if identity.Proxy == nil || identity.Proxy.Host != "10.0.0.9" {
			t.Errorf("identity %d: expected shared proxy 10.0.0.9, got %v", i, identity.Proxy)
		}
	}
}

// TestAssign_Direct tests the direct-connection cases.
func TestAssign_Direct(t *testing.T) {
	t.Parallel()

	t.Run("useProxies false keeps identities direct", func(t *testing.T) {
		t.Parallel()

		identities := newTestIdentities(2)
		errs := Assign(identities, []string{"http://10.0.0.1:8080"}, false)
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		for i, identity := range identities {
			if identity.Proxy != nil {
				t.Errorf("identity %d: expected nil proxy, got %v", i, identity.Proxy)
			}
		}
	})

	t.Run("empty proxy list keeps identities direct", func(t *testing.T) {
		t.Parallel()

		identities := newTestIdentities(2)
		errs := Assign(identities, nil, true)
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		for i, identity := range identities {
			if identity.Proxy != nil {
				t.Errorf("identity %d: expected nil proxy, got %v", i, identity.Proxy)
			}
		}
	})

	t.Run("stale bindings are cleared", func(t *testing.T) {
		t.Parallel()

		identities := newTestIdentities(1)
		identities[0].Proxy = &model.ProxyDescriptor{Host: "10.0.0.1", Port: 8080}

		if errs := Assign(identities, nil, false); len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if identities[0].Proxy != nil {
			t.Errorf("expected stale binding to be cleared, got %v", identities[0].Proxy)
		}
	})
}

// TestAssign_MalformedEntryFallsBackToDirect tests that an unparsable entry
// downgrades only the affected identity.
func TestAssign_MalformedEntryFallsBackToDirect(t *testing.T) {
	t.Parallel()

	identities := newTestIdentities(2)
	proxies := []string{
		"http://10.0.0.1:8080",
		"not_a_proxy",
	}

	errs := Assign(identities, proxies, true)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], ErrInvalidProxyFormat) {
		t.Errorf("expected ErrInvalidProxyFormat, got %v", errs[0])
	}
	if strings.Contains(errs[0].Error(), "not_a_proxy") {
		t.Errorf("error must not echo the raw proxy string: %v", errs[0])
	}

	if identities[0].Proxy == nil || identities[0].Proxy.Host != "10.0.0.1" {
		t.Errorf("identity 0: expected proxy 10.0.0.1, got %v", identities[0].Proxy)
	}
	if identities[1].Proxy != nil {
		t.Errorf("identity 1: expected direct fallback, got %v", identities[1].Proxy)
	}
}

// TestAssign_ErrorNamesIdentityByFingerprint tests that assignment warnings
// identify identities without exposing addresses.
func TestAssign_ErrorNamesIdentityByFingerprint(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xABCDEF0123456789", "secret")
	errs := Assign([]*model.Identity{identity}, []string{"bad"}, true)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !strings.Contains(errs[0].Error(), identity.Fingerprint()) {
		t.Errorf("expected error to carry the fingerprint, got %v", errs[0])
	}
	if strings.Contains(errs[0].Error(), identity.Address) {
		t.Errorf("error must not expose the address: %v", errs[0])
	}
}
