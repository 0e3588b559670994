package core

import "testing"

func TestParseEnvironment(t *testing.T) {
	tests := map[string]Environment{
		"production":    Production,
		" Production ":  Production,
		"prod":          Production,
		"staging":       Staging,
		"test":          Testing,
		"":              Development,
		"anything-else": Development,
	}
	for in, want := range tests {
		if got := ParseEnvironment(in); got != want {
			t.Fatalf("ParseEnvironment(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestExposeErrorDetail(t *testing.T) {
	if Production.ExposeErrorDetail() || Staging.ExposeErrorDetail() {
		t.Fatal("production-like environments must hide error detail")
	}
	if !Development.ExposeErrorDetail() || !Testing.ExposeErrorDetail() {
		t.Fatal("development and testing should expose error detail")
	}
}
