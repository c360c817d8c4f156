package main

import "testing"

func TestStudioURL(t *testing.T) {
	cases := map[string]string{
		":8080":          "http://localhost:8080/",
		"127.0.0.1:9000": "http://127.0.0.1:9000/",
	}
	for addr, want := range cases {
		if got := studioURL(addr); got != want {
			t.Errorf("studioURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("AVATARAI_TEST_ADDR", "")
	if got := envOr("AVATARAI_TEST_ADDR", ":8080"); got != ":8080" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("AVATARAI_TEST_ADDR", ":9090")
	if got := envOr("AVATARAI_TEST_ADDR", ":8080"); got != ":9090" {
		t.Errorf("expected env value, got %q", got)
	}
}
