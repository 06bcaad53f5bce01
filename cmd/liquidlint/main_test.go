package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sections", "a.liquid"), "")
	writeFile(t, filepath.Join(dir, "snippets", "b.LIQUID"), "")
	writeFile(t, filepath.Join(dir, "node_modules", "x.liquid"), "")
	writeFile(t, filepath.Join(dir, ".git", "y.liquid"), "")
	writeFile(t, filepath.Join(dir, "README.md"), "")

	files, err := collectFiles([]string{dir, filepath.Join(dir, "sections", "a.liquid")})
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	want := []string{
		filepath.ToSlash(filepath.Join(dir, "sections", "a.liquid")),
		filepath.ToSlash(filepath.Join(dir, "snippets", "b.LIQUID")),
	}
	if !slices.Equal(files, want) {
		t.Errorf("files = %q, want %q", files, want)
	}

	if _, err := collectFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("missing path accepted")
	}
}

func TestReadFlagsValues(t *testing.T) {
	if f, err := readFormat(" JSON "); err != nil || f != formatJSON {
		t.Errorf("readFormat = %q, %v", f, err)
	}
	if _, err := readFormat("sarif"); err == nil {
		t.Error("sarif accepted")
	}
	if m, err := readUIMode(""); err != nil || m != uiModeAuto {
		t.Errorf("readUIMode = %q, %v", m, err)
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Error("invalid ui mode accepted")
	}
	if on, err := readColor("on"); err != nil || !on {
		t.Errorf("readColor(on) = %v, %v", on, err)
	}
	if shouldUseTUI(uiModeOff, 10) || !shouldUseTUI(uiModeOn, 1) {
		t.Error("explicit ui modes ignored")
	}
}

// execute runs the root command with every flag the tests depend on set
// explicitly, since cobra keeps flag values between runs.
func execute(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	base := []string{"--ui", "off", "--color", "off", "--cache=false", "--profile", "", "--config", config,
		"--cpu-profile", "", "--mem-profile", "", "--runtime-trace", ""}
	full := append([]string{args[0]}, append(base, args[1:]...)...)
	rootCmd.SetArgs(full)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String() + errOut.String(), err
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "liquidlint.toml")
	writeFile(t, config, "profile = \"development\"\n")
	clean := filepath.Join(dir, "sections", "clean.liquid")
	broken := filepath.Join(dir, "sections", "broken.liquid")
	writeFile(t, clean, "{{ product.id }}")
	writeFile(t, broken, "{% if product.available %}<p>x</p>")

	out, err := execute(t, config, "check", "--format", "short", clean)
	if err != nil || out != "" {
		t.Fatalf("clean file: err=%v out=%q", err, out)
	}

	out, err = execute(t, config, "check", "--format", "short", broken)
	if !errors.Is(err, errFailed) {
		t.Fatalf("broken file: err = %v", err)
	}
	if !strings.Contains(out, "TAG2002") {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, config, "check", "--format", "json", dir)
	if !errors.Is(err, errFailed) || !strings.Contains(out, `"pass": false`) {
		t.Errorf("json run: err=%v out=%s", err, out)
	}
}

func TestFixCommandWritesFiles(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "liquidlint.toml")
	writeFile(t, config, "profile = \"development\"\n")
	path := filepath.Join(dir, "snippets", "bom.liquid")
	writeFile(t, path, "\uFEFF{{ product.id }}")

	if out, err := execute(t, config, "fix", "--format", "short", "--dry-run", path); err != nil {
		t.Fatalf("dry run: %v %s", err, out)
	}
	if data, _ := os.ReadFile(path); !bytes.HasPrefix(data, []byte("\uFEFF")) {
		t.Fatal("dry run wrote the file")
	}

	if out, err := execute(t, config, "fix", "--format", "short", "--dry-run=false", path); err != nil {
		t.Fatalf("fix: %v %s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{{ product.id }}" {
		t.Errorf("content = %q", data)
	}
}

func TestProfilesCommand(t *testing.T) {
	out, err := execute(t, "", "profiles", "--effective=false")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"comprehensive", "development", "production"} {
		if !strings.Contains(out, name) {
			t.Errorf("profiles output misses %s:\n%s", name, out)
		}
	}
}

func TestTokenizeCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sections", "tok.liquid")
	writeFile(t, path, "<p>{{ product.title }}</p>{% schema %}{}{% endschema %}")

	out, err := execute(t, "", "tokenize", "--format", "json", path)
	if err != nil {
		t.Fatalf("tokenize: %v %s", err, out)
	}
	for _, want := range []string{`"kind": "Output"`, `"kind": "FenceStart"`, `"tag": "schema"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output misses %s:\n%s", want, out)
		}
	}

	out, err = execute(t, "", "tokenize", "--format", "pretty", path)
	if err != nil {
		t.Fatalf("tokenize pretty: %v", err)
	}
	if !strings.Contains(out, "Output") || !strings.Contains(out, "region") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestProfilingFlags(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "liquidlint.toml")
	writeFile(t, config, "profile = \"development\"\n")
	path := filepath.Join(dir, "sections", "clean.liquid")
	writeFile(t, path, "{{ product.id }}")
	cpu := filepath.Join(dir, "cpu.out")
	mem := filepath.Join(dir, "mem.out")

	if out, err := execute(t, config, "check", "--format", "short", "--cpu-profile", cpu, "--mem-profile", mem, path); err != nil {
		t.Fatalf("check: %v %s", err, out)
	}
	for _, p := range []string{cpu, mem} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("profile %s not written: %v", p, err)
		}
	}
}
