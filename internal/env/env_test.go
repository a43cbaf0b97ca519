package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func toMap(kvs []string) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, _ := strings.Cut(kv, "=")
		m[k] = v
	}
	return m
}

func TestMergePrecedenceAndExpansion(t *testing.T) {
	t.Setenv("PIPEDECK_TEST_BASE", "os")
	e := New().WithSet("PIPEDECK_TEST_BASE", "global").WithSet("HOME_DIR", "/home/u")
	out := toMap(e.Merge([]string{"DATA=${HOME_DIR}/.screenpipe", "=skipped", "noequals"}))
	if out["PIPEDECK_TEST_BASE"] != "global" {
		t.Fatalf("global var should override OS env, got %q", out["PIPEDECK_TEST_BASE"])
	}
	if out["DATA"] != "/home/u/.screenpipe" {
		t.Fatalf("expansion failed: %q", out["DATA"])
	}
	if _, ok := out[""]; ok {
		t.Fatalf("empty key must be skipped")
	}
}

func TestWithSetDoesNotMutateReceiver(t *testing.T) {
	a := New()
	b := a.WithSet("K", "v")
	if _, ok := a.vars["K"]; ok {
		t.Fatalf("receiver mutated")
	}
	if toMap(b.Merge(nil))["K"] != "v" {
		t.Fatalf("copy missing K")
	}
}

func TestWithFilesLaterOverrides(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "a.env")
	f2 := filepath.Join(dir, "b.env")
	if err := os.WriteFile(f1, []byte("# comment\nA=1\nB=from-a\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f2, []byte("B=\"from-b\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := New().WithFiles(f1, f2)
	if err != nil {
		t.Fatalf("WithFiles: %v", err)
	}
	out := toMap(e.Merge(nil))
	if out["A"] != "1" || out["B"] != "from-b" {
		t.Fatalf("unexpected vars: A=%q B=%q", out["A"], out["B"])
	}
	if _, err := New().WithFiles(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestExpandKeepsUnknown(t *testing.T) {
	got := expand("${A}-${MISSING}-${", Var{"A": "x"})
	if got != "x-${MISSING}-${" {
		t.Fatalf("got %q", got)
	}
}
