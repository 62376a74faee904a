package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weaver/internal/emit"
)

const accountSnapshot = `files:
  - path: Bank/Account.cs
    usings: [System]
    types:
      - name: Account
        namespace: Bank
        access: public
        members:
          - {kind: field, name: balance, type: int}
          - kind: method
            name: Deposit
            type: void
            access: public
            params: [{name: amount, type: int}]
            body: "balance += amount;"
aspects:
  - name: Audit
    instances:
      - advices:
          - {kind: override, target: "M:Bank.Account.Deposit(int)", body: "Log(); meta.Proceed();"}
`

const brokenAdvice = `          - {kind: override, target: "M:Bank.Nowhere.Run()", body: "meta.Proceed();"}
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// workspace creates a directory holding snap.yaml and makes it current.
func workspace(t *testing.T, snapshot string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "snap.yaml"), []byte(snapshot), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	t.Chdir(dir)
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestWeaveWritesUnits(t *testing.T) {
	dir := workspace(t, accountSnapshot)

	_, stderr, err := execute(t, "weave", "snap.yaml", "--ui", "off", "-o", "out")
	if err != nil {
		t.Fatalf("weave: %v\n%s", err, stderr)
	}
	text := readFile(t, filepath.Join(dir, "out", "Bank", "Account.cs"))
	for _, want := range []string{"Log(); this.Deposit_Source(amount);", "Deposit_Source(int amount)", "balance += amount;"} {
		if !strings.Contains(text, want) {
			t.Fatalf("unit misses %q:\n%s", want, text)
		}
	}
	if !strings.Contains(stderr, "wove 1 units into out, 0 failed targets") {
		t.Fatalf("unexpected summary: %q", stderr)
	}
}

func TestWeaveReportsErrorsAndStillWrites(t *testing.T) {
	dir := workspace(t, accountSnapshot+brokenAdvice)

	stdout, stderr, err := execute(t, "weave", "snap.yaml", "--ui", "off", "--format", "short")
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("err = %v, want errDiagnostics", err)
	}
	if !strings.Contains(stdout, "CFG1004") {
		t.Fatalf("diagnostics miss CFG1004:\n%s", stdout)
	}
	if !strings.Contains(stderr, "1 failed targets") {
		t.Fatalf("unexpected summary: %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "woven", "Bank", "Account.cs")); err != nil {
		t.Fatalf("unit not written: %v", err)
	}
}

func TestWeaveServesRepeatRunsFromCache(t *testing.T) {
	dir := workspace(t, accountSnapshot+brokenAdvice)
	args := []string{"weave", "snap.yaml", "--ui", "off", "--format", "short", "--cache", filepath.Join(dir, "cache")}

	first, stderr, err := execute(t, args...)
	if !errors.Is(err, errDiagnostics) || strings.Contains(stderr, "(cached)") {
		t.Fatalf("first run: err=%v stderr=%q", err, stderr)
	}
	unit := readFile(t, filepath.Join(dir, "woven", "Bank", "Account.cs"))
	if err := os.RemoveAll(filepath.Join(dir, "woven")); err != nil {
		t.Fatal(err)
	}

	second, stderr, err := execute(t, args...)
	if !errors.Is(err, errDiagnostics) || !strings.Contains(stderr, "(cached)") {
		t.Fatalf("second run: err=%v stderr=%q", err, stderr)
	}
	if first != second {
		t.Fatalf("cached diagnostics differ:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if got := readFile(t, filepath.Join(dir, "woven", "Bank", "Account.cs")); got != unit {
		t.Fatalf("cached unit differs:\n%s", got)
	}
}

func TestCheckPrintsSummary(t *testing.T) {
	dir := workspace(t, accountSnapshot)

	stdout, _, err := execute(t, "check", "snap.yaml")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{
		"Bank.Account\n",
		"chain M:Bank.Account.Deposit(int): Deposit_Source <- Deposit",
		"1 units, 0 failed targets",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("summary misses %q:\n%s", want, stdout)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "woven")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("check wrote output: %v", err)
	}
}

func TestMissingSnapshotIsAnError(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := execute(t, "check")
	if err == nil || !strings.Contains(err.Error(), "no snapshot given") {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteUnitsRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	n, err := writeUnits(dir, []emit.SourceUnit{
		{Path: "A.cs", Text: "class A {}\n"},
		{Path: "../B.cs", Text: "class B {}\n"},
	})
	if err == nil || n != 1 {
		t.Fatalf("writeUnits = %d, %v", n, err)
	}
	if got := readFile(t, filepath.Join(dir, "A.cs")); got != "class A {}\n" {
		t.Fatalf("A.cs = %q", got)
	}
}

func TestApplyColorMode(t *testing.T) {
	for _, mode := range []string{"on", "off", "auto"} {
		if err := applyColorMode(mode); err != nil {
			t.Fatalf("applyColorMode(%q): %v", mode, err)
		}
	}
	if err := applyColorMode("sometimes"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}
