package middleware

import (
	"testing"
)

func TestMiddleware_Chain(t *testing.T) {
	type handler func(int) int

	addFive := func(h handler) handler {
		return func(n int) int {
			return h(n) + 5
		}
	}

	double := func(h handler) handler {
		return func(n int) int {
			return h(n) * 2
		}
	}

	base := func(n int) int {
		return n
	}

	chained := Chain(addFive, double)(base)
	if got := chained(3); got != 11 {
		t.Errorf("Expected 11, got %d", got)
	}
}

func TestMiddleware_ChainEmpty(t *testing.T) {
	type handler func(string) string

	base := func(s string) string {
		return s
	}

	chained := Chain[handler]()(base)
	if got := chained("hello"); got != "hello" {
		t.Errorf("Expected 'hello', got %s", got)
	}
}

func TestMiddleware_ChainOrder(t *testing.T) {
	type handler func([]string) []string

	tag := func(name string) func(handler) handler {
		return func(h handler) handler {
			return func(s []string) []string {
				return append(h(s), name)
			}
		}
	}

	base := func(s []string) []string {
		return append(s, "base")
	}

	chained := Chain(tag("outer"), tag("inner"))(base)
	got := chained(nil)

	want := []string{"base", "inner", "outer"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
