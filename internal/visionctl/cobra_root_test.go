package visionctl

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootListsSubcommands(t *testing.T) {
	cfg := &Config{Addr: "http://127.0.0.1:8080"}
	root := BuildRootCmd(cfg, &bytes.Buffer{})
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"status", "assets", "provision", "cancel", "generate"} {
		if !names[want] {
			t.Fatalf("missing subcommand %q (have %v)", want, names)
		}
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	srv := newStubDaemon(t)
	cfg := &Config{Addr: srv.URL}
	root := BuildRootCmd(cfg, &bytes.Buffer{})
	root.SetArgs([]string{"generate"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected arg error for missing prompt")
	}
}

func TestGenerateThroughCobra(t *testing.T) {
	srv := newStubDaemon(t)
	cfg := &Config{Addr: srv.URL}
	var out bytes.Buffer
	root := BuildRootCmd(cfg, &out)
	root.SetArgs([]string{"generate", "what is this"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "a cat") {
		t.Fatalf("output=%q", out.String())
	}
}

func TestAddrFlagOverrides(t *testing.T) {
	srv := newStubDaemon(t)
	cfg := &Config{Addr: "http://127.0.0.1:1"}
	var out bytes.Buffer
	root := BuildRootCmd(cfg, &out)
	root.SetArgs([]string{"--addr", srv.URL, "status"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "idle") {
		t.Fatalf("output=%q", out.String())
	}
}
