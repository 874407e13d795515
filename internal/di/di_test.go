package di

import "testing"

type counterService struct{ n int }

func TestContainer_LazySingleton(t *testing.T) {
	c := NewContainer()
	builds := 0
	tok := NewToken[*counterService]("test:counter")
	RegisterToken(c, tok, func(ServiceRegistry) *counterService {
		builds++
		return &counterService{n: builds}
	})

	first := GetToken(c, tok)
	second := GetToken(c, tok)

	if first != second {
		t.Error("expected the same instance on every resolve")
	}
	if builds != 1 {
		t.Errorf("expected 1 build, got %d", builds)
	}
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("name", "wallet")

	tok := NewToken[string]("test:greeting")
	RegisterToken(c, tok, func(sr ServiceRegistry) string {
		return "hello " + sr.Get("name").(string)
	})

	if got := GetToken(c, tok); got != "hello wallet" {
		t.Errorf("expected 'hello wallet', got %q", got)
	}
}

func TestContainer_MissingPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered service")
		}
	}()
	NewContainer().Get("missing")
}

func TestContainer_CyclePanics(t *testing.T) {
	c := NewContainer()
	a := NewToken[int]("test:a")
	b := NewToken[int]("test:b")
	RegisterToken(c, a, func(sr ServiceRegistry) int { return GetToken(sr, b) })
	RegisterToken(c, b, func(sr ServiceRegistry) int { return GetToken(sr, a) })

	defer func() {
		if recover() == nil {
			t.Error("expected panic for dependency cycle")
		}
	}()
	GetToken(c, a)
}

type greeter interface{ Greet() string }

func TestGetToken_NilInterface(t *testing.T) {
	c := NewContainer()
	tok := NewToken[greeter]("test:optional")
	RegisterToken(c, tok, func(ServiceRegistry) greeter { return nil })

	if got := GetToken(c, tok); got != nil {
		t.Errorf("expected nil service, got %v", got)
	}
}
