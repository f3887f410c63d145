package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

const validManifest = `
[program]
name = "token"
network = "testnet"
entry = "build/token.last"

[build]
max_rounds = 16
inline = true
`

func TestParseValidManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), validManifest)

	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Program.Name != "token" || cfg.Program.Entry != "build/token.last" {
		t.Fatalf("program section lost: %+v", cfg.Program)
	}
	if cfg.Build.MaxRounds != 16 || !cfg.Build.Inline {
		t.Fatalf("build section lost: %+v", cfg.Build)
	}
}

func TestParseRejectsMissingSections(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"no program table", `[build]`, "missing [program]"},
		{"no name", "[program]\nentry = \"a.last\"", "missing [program].name"},
		{"blank name", "[program]\nname = \" \"\nentry = \"a.last\"", "missing [program].name"},
		{"no entry", "[program]\nname = \"token\"", "missing [program].entry"},
		{"negative rounds", "[program]\nname = \"t\"\nentry = \"a.last\"\n[build]\nmax_rounds = -1", "must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.content)
			_, err := Parse(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, validManifest)
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if filepath.Dir(path) != root {
		t.Fatalf("found %q, want manifest in %q", path, root)
	}
}

func TestFindReportsAbsence(t *testing.T) {
	_, ok, err := Find(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if ok {
		t.Fatalf("empty tree must not yield a manifest")
	}
}

func TestLoadResolvesRoot(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, validManifest)

	m, ok, err := Load(root)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Fatalf("root resolved to %q, want %q", m.Root, root)
	}
}

func TestEntryPathChecksArtifact(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, validManifest)
	m, _, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := m.EntryPath(); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("missing entry must be reported, got %v", err)
	}

	buildDir := filepath.Join(root, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	artifact := filepath.Join(buildDir, "token.last")
	if err := os.WriteFile(artifact, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	path, err := m.EntryPath()
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if path != artifact {
		t.Fatalf("resolved %q, want %q", path, artifact)
	}
}

func TestEntryPathRejectsWrongExtension(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[program]\nname = \"t\"\nentry = \"a.llow\"")
	m, _, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.llow"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.EntryPath(); err == nil || !strings.Contains(err.Error(), ".last") {
		t.Fatalf("wrong extension must be rejected, got %v", err)
	}
}
