package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"version"}); err != nil {
		t.Fatalf("run(version) error: %v", err)
	}
	if !strings.Contains(out.String(), "yakbot") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunVersionJSON(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run(-o json version) error: %v", err)
	}
	if !strings.Contains(out.String(), `"version"`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunNoCommandPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, nil); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-bogus", "serve"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("err = %v", err)
	}
}

func TestRunBadOutputFormat(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-o", "xml", "version"})
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("err = %v", err)
	}
}

func TestRunAskRequiresQuestion(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"ask"})
	if err == nil || !strings.Contains(err.Error(), "usage: yakbot ask") {
		t.Errorf("err = %v", err)
	}
}
