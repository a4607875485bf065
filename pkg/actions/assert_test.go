package actions

import (
	"context"
	"testing"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

func TestAssertStringMatch(t *testing.T) {
	rc := runctx.Context{"status": "ok"}
	a := &Assert{Name: "check", Key: "status", Value: "ok"}
	var reports []Report
	cfg := &config.Config{}
	p := pool.New(0, false)

	if err := a.Execute(context.Background(), rc, &reports, p, cfg); err != nil {
		t.Fatalf("expected assertion to pass, got %v", err)
	}
}

func TestAssertNumericCoercion(t *testing.T) {
	rc := runctx.Context{"code": 200}
	a := &Assert{Name: "check", Key: "code", Value: "200"}
	var reports []Report
	cfg := &config.Config{}
	p := pool.New(0, false)

	if err := a.Execute(context.Background(), rc, &reports, p, cfg); err != nil {
		t.Fatalf("expected numeric string to coerce and match, got %v", err)
	}
}

func TestAssertMismatchFails(t *testing.T) {
	rc := runctx.Context{"code": 200}
	a := &Assert{Name: "check", Key: "code", Value: "404"}
	var reports []Report
	cfg := &config.Config{}
	p := pool.New(0, false)

	if err := a.Execute(context.Background(), rc, &reports, p, cfg); err == nil {
		t.Fatal("expected assertion mismatch to fail")
	}
}
