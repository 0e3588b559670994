package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestAppError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", New(base, http.StatusBadGateway, "upstream failed"))

	if !errors.Is(err, base) {
		t.Fatal("expected chain to contain base error")
	}
	if StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", StatusOf(err))
	}
	if got := New(nil, http.StatusTeapot, "short").Error(); got != "short" {
		t.Fatalf("unexpected message %q", got)
	}
	if StatusOf(base) != 0 {
		t.Fatal("plain errors carry no status")
	}
}

func TestWrapRedis(t *testing.T) {
	if WrapRedis(nil) != nil {
		t.Fatal("nil should stay nil")
	}
	if StatusOf(WrapRedis(redis.Nil)) != http.StatusNotFound {
		t.Fatal("redis.Nil should map to 404")
	}
	wrapped := WrapRedis(errors.New("dial tcp: refused"))
	if StatusOf(wrapped) != http.StatusBadGateway {
		t.Fatal("redis failures should map to 502")
	}
}
