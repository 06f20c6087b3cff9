package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDisabledClient(t *testing.T) {
	ctx := context.Background()
	c := Connect(ctx, "", "", time.Minute)

	if c.Enabled() {
		t.Fatal("client without address must be disabled")
	}
	if err := c.SetJSON(ctx, "k", map[string]int{"a": 1}, 0); !errors.Is(err, ErrDisabled) {
		t.Errorf("SetJSON err = %v", err)
	}

	var dst map[string]int
	found, err := c.GetJSON(ctx, "k", &dst)
	if found || err != nil {
		t.Errorf("GetJSON = %v, %v", found, err)
	}

	ok, remaining, err := c.Allow(ctx, "k", 3, time.Minute)
	if !ok || remaining != 3 || err != nil {
		t.Errorf("Allow = %v, %d, %v", ok, remaining, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client reported enabled")
	}
	if ok, _, _ := c.Allow(context.Background(), "k", 1, time.Second); !ok {
		t.Fatal("nil client must admit")
	}
}

func TestKeys(t *testing.T) {
	if got := LastGenerationKey(nil); got != "timetable:last:all" {
		t.Errorf("LastGenerationKey(nil) = %q", got)
	}
	dept := uint(4)
	if got := LastGenerationKey(&dept); got != "timetable:last:dept:4" {
		t.Errorf("LastGenerationKey(4) = %q", got)
	}
	if got := LoginAttemptsKey("10.0.0.1"); got != "ratelimit:login:10.0.0.1" {
		t.Errorf("LoginAttemptsKey = %q", got)
	}
}
