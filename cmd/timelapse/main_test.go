package main

import (
	"slices"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"serve", "encode", "upload", "create", "status", "download", "cleanup", "logs", "test-notify", "check", "config"} {
		if !slices.Contains(names, want) {
			t.Fatalf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestConfigInitSkipsConfigLoad(t *testing.T) {
	root := newRootCommand()
	cmd, _, err := root.Find([]string{"config", "init"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !shouldSkipConfig(cmd) {
		t.Fatal("expected config init to skip config loading")
	}
	status, _, err := root.Find([]string{"status"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if shouldSkipConfig(status) {
		t.Fatal("expected status to load config")
	}
}
