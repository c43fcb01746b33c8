package config

import (
	"testing"
	"time"
)

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("SNAKEGYM_STR", "data/out")
	t.Setenv("SNAKEGYM_INT", " 12 ")
	t.Setenv("SNAKEGYM_BAD_INT", "twelve")
	t.Setenv("SNAKEGYM_I64", "9000000000")
	t.Setenv("SNAKEGYM_FLOAT", "0.97")
	t.Setenv("SNAKEGYM_DUR", "250ms")
	t.Setenv("SNAKEGYM_BOOL", "yes")

	if got := EnvOr("SNAKEGYM_STR", "x"); got != "data/out" {
		t.Fatalf("EnvOr=%q", got)
	}
	if got := EnvOr("SNAKEGYM_UNSET", "x"); got != "x" {
		t.Fatalf("EnvOr default=%q", got)
	}
	if got := EnvInt("SNAKEGYM_INT", 1); got != 12 {
		t.Fatalf("EnvInt=%d", got)
	}
	if got := EnvInt("SNAKEGYM_BAD_INT", 7); got != 7 {
		t.Fatalf("EnvInt bad=%d", got)
	}
	if got := EnvInt64("SNAKEGYM_I64", 0); got != 9000000000 {
		t.Fatalf("EnvInt64=%d", got)
	}
	if got := EnvFloat("SNAKEGYM_FLOAT", 0); got != 0.97 {
		t.Fatalf("EnvFloat=%v", got)
	}
	if got := EnvDuration("SNAKEGYM_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("EnvDuration=%v", got)
	}
	if !EnvBool("SNAKEGYM_BOOL", false) || EnvBool("SNAKEGYM_UNSET", false) {
		t.Fatalf("EnvBool wrong")
	}
}
