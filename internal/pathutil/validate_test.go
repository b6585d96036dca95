package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestConfine(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(allowed, "scenarios"), 0700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		path        string
		base        string
		allowed     []string
		wantErr     bool
		errContains string
	}{
		{"file inside", filepath.Join(allowed, "a.yaml"), "", []string{allowed}, false, ""},
		{"file in subdirectory", filepath.Join(allowed, "scenarios", "a.yaml"), "", []string{allowed}, false, ""},
		{"relative to base", "scenarios/a.yaml", allowed, []string{allowed}, false, ""},
		{"missing parents", filepath.Join(allowed, "x", "y", "a.yaml"), "", []string{allowed}, false, ""},
		{"dir itself", allowed, "", []string{allowed}, false, ""},
		{"dot-dot escape", filepath.Join(allowed, "..", "etc", "passwd"), "", []string{allowed}, true, "outside allowed"},
		{"relative escape", "../../etc/passwd", allowed, []string{allowed}, true, "outside allowed"},
		{"other dir", filepath.Join(other, "a.yaml"), "", []string{allowed}, true, "outside allowed"},
		{"second allowed dir", filepath.Join(other, "a.yaml"), "", []string{allowed, other}, false, ""},
		{"null byte", filepath.Join(allowed, "a\x00.yaml"), "", []string{allowed}, true, "null byte"},
		{"empty", "", allowed, []string{allowed}, true, "empty"},
		{"no allowed dirs", filepath.Join(allowed, "a.yaml"), "", nil, true, "no allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Confine(tt.path, tt.base, tt.allowed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Confine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Confine() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if !filepath.IsAbs(got) {
				t.Errorf("Confine() = %q, want absolute path", got)
			}
		})
	}
}

func TestConfineOutsideIsSentinel(t *testing.T) {
	_, err := Confine(filepath.Join(t.TempDir(), "a.yaml"), "", []string{t.TempDir()})
	if !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("error = %v, want ErrOutsideAllowed", err)
	}
}

func TestConfineSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowed := t.TempDir()
	outside := t.TempDir()
	real := filepath.Join(allowed, "real")
	if err := os.MkdirAll(real, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(allowed, "escape")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := os.Symlink(real, filepath.Join(allowed, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	if _, err := Confine(filepath.Join(allowed, "escape", "a.yaml"), "", []string{allowed}); !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("symlink escape: error = %v, want ErrOutsideAllowed", err)
	}
	if _, err := Confine(filepath.Join(allowed, "link", "a.yaml"), "", []string{allowed}); err != nil {
		t.Errorf("symlink inside: unexpected error %v", err)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/.wavecal/config.yaml", ".../.wavecal/config.yaml"},
		{"/a/b/c/d/e.yaml", ".../d/e.yaml"},
		{"/file.yaml", "file.yaml"},
		{"dir/file.yaml", ".../dir/file.yaml"},
		{"file.yaml", "file.yaml"},
	}
	for _, tt := range tests {
		if got := Redact(tt.input); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestScenarioDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dirs := ScenarioDirs("/project")
	if len(dirs) != 2 || dirs[0] != "/project" {
		t.Fatalf("ScenarioDirs() = %v", dirs)
	}
	if want := filepath.Join(home, ".wavecal", "scenarios"); dirs[1] != want {
		t.Errorf("dirs[1] = %q, want %q", dirs[1], want)
	}
}
