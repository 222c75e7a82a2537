package useragent

import "testing"

func TestNext_RoundRobin(t *testing.T) {
	pool := NewPool([]string{"a", "b", "c"})

	got := []string{pool.Next(), pool.Next(), pool.Next(), pool.Next()}
	want := []string{"a", "b", "c", "a"}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNewPool_DefaultsToDesktopChrome(t *testing.T) {
	pool := NewPool(nil)

	if len(pool.All()) != len(DesktopChrome) {
		t.Fatalf("expected %d default UAs, got %d", len(DesktopChrome), len(pool.All()))
	}

	ua := pool.Pick()
	found := false
	for _, candidate := range DesktopChrome {
		if ua == candidate {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Pick returned %q, not a DesktopChrome entry", ua)
	}
}

func TestNewPool_CopiesInput(t *testing.T) {
	input := []string{"original"}
	pool := NewPool(input)
	input[0] = "mutated"

	if pool.Next() != "original" {
		t.Error("pool should not observe mutations of the input slice")
	}
}

func TestPool_Empty(t *testing.T) {
	pool := &Pool{}
	if pool.Next() != "" || pool.Pick() != "" {
		t.Error("empty pool should return empty strings")
	}
}
