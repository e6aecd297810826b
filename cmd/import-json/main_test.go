// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgs(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	testCases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no command", nil, true},
		{"unknown command", []string{"sync"}, true},
		{"import without files", []string{"import", "-d", "postgres://x"}, true},
		{"import without database", []string{"import", "-materials", "m.json"}, true},
		{"dry run needs no database", []string{"import", "-materials", "m.json", "-dry-run"}, false},
		{"export", []string{"export", "-d", "postgres://x", "-out", "backup"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseArgs(tc.args)
			if (err != nil) != tc.wantErr {
				t.Errorf("Expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseArgs_DatabaseFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")

	opts, err := parseArgs([]string{"export"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if opts.DatabaseURL != "postgres://env" {
		t.Errorf("Expected env database URL, got %q", opts.DatabaseURL)
	}
	if opts.OutDir != "." {
		t.Errorf("Expected default out dir '.', got %q", opts.OutDir)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadBundle(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		MaterialsFile: writeFile(t, dir, "materials.json", `{
			"currency": "EUR",
			"sections": [
				{"id": "kitchen", "label": "Cuisine", "items": [
					{"product": "Robinet", "price": {"ttc": 120}},
					{"product": "Evier", "price": {"ttc": 300}}
				]},
				{"id": "bath", "label": "Salle de bain", "items": [{"product": "Douche"}]}
			]
		}`),
		ProjectsFile: writeFile(t, dir, "projects.json", `[{"id": "p1", "name": "Rue de Rivoli"}]`),
		WorkersFile:  writeFile(t, dir, "workers.json", `[{"id": "w1", "name": "Jean", "jobs": []}]`),
	}

	b, err := readBundle(opts)
	if err != nil {
		t.Fatalf("readBundle failed: %v", err)
	}
	if b.itemCount() != 3 {
		t.Errorf("Expected 3 items, got %d", b.itemCount())
	}
	if len(b.Projects) != 1 || *b.Projects[0].Name != "Rue de Rivoli" {
		t.Errorf("Unexpected projects: %+v", b.Projects)
	}
	if len(b.Workers) != 1 || b.Workers[0].Name != "Jean" {
		t.Errorf("Unexpected workers: %+v", b.Workers)
	}
}

func TestReadBundle_Errors(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		opts options
	}{
		{"missing file", options{MaterialsFile: filepath.Join(dir, "absent.json")}},
		{"invalid JSON", options{ProjectsFile: writeFile(t, dir, "bad.json", `{not json`)}},
		{"no sections", options{MaterialsFile: writeFile(t, dir, "empty.json", `{"currency": "EUR"}`)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := readBundle(tc.opts); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := writeJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n  \"a\": 1\n}\n" {
		t.Errorf("Unexpected output: %q", data)
	}
}
