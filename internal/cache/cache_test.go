package cache

import (
	"strings"
	"testing"
)

func TestKey_Stable(t *testing.T) {
	a := Key([]string{"отпуск", "как оформить отпуск"})
	b := Key([]string{"отпуск", "как оформить отпуск"})
	if a != b {
		t.Errorf("same queries produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, answerPrefix) {
		t.Errorf("expected prefix %q, got %q", answerPrefix, a)
	}
	if len(a) != len(answerPrefix)+64 {
		t.Errorf("expected hex sha256 suffix, got %q", a)
	}
}

func TestKey_Distinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{name: "order", a: []string{"a", "b"}, b: []string{"b", "a"}},
		{name: "boundaries", a: []string{"ab", "c"}, b: []string{"a", "bc"}},
		{name: "empty combined", a: []string{"a"}, b: []string{"a", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Key(tt.a) == Key(tt.b) {
				t.Errorf("expected different keys for %q and %q", tt.a, tt.b)
			}
		})
	}
}

func TestCloseNil(t *testing.T) {
	var c *Cache
	if err := c.Close(); err != nil {
		t.Errorf("expected nil error closing nil cache, got %v", err)
	}
}
