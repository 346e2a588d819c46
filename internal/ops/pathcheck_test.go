package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/kin/internal/config"
	"github.com/hpungsan/kin/internal/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	if err := os.MkdirAll(cfg.ExportsDir(), 0700); err != nil {
		t.Fatalf("mkdir exports: %v", err)
	}
	return cfg
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestValidatePath_Rejections(t *testing.T) {
	cfg := testConfig(t)
	nested := filepath.Join(cfg.ExportsDir(), "nested")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		mode PathCheckMode
		want errors.ErrorCode
	}{
		{"empty", "", PathCheckWrite, errors.ErrInvalidRequest},
		{"parent traversal", "../backup.jsonl", PathCheckWrite, errors.ErrInvalidRequest},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl", PathCheckWrite, errors.ErrInvalidRequest},
		{"no extension", filepath.Join(cfg.ExportsDir(), "backup"), PathCheckWrite, errors.ErrInvalidRequest},
		{"wrong extension", filepath.Join(cfg.ExportsDir(), "backup.json"), PathCheckWrite, errors.ErrInvalidRequest},
		{"outside allowed", filepath.Join(t.TempDir(), "backup.jsonl"), PathCheckWrite, errors.ErrInvalidRequest},
		{"nested write", filepath.Join(nested, "out.jsonl"), PathCheckWrite, errors.ErrInvalidRequest},
		{"missing read", filepath.Join(cfg.ExportsDir(), "missing.jsonl"), PathCheckRead, errors.ErrFileNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, tc.mode, cfg)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidatePath(%q) = %v, want %s", tc.path, err, tc.want)
			}
		})
	}
}

func TestValidatePath_ExportsDirAccepted(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(cfg.ExportsDir(), "ok.jsonl")

	if err := ValidatePath(file, PathCheckWrite, cfg); err != nil {
		t.Errorf("write: %v", err)
	}
	touch(t, file)
	if err := ValidatePath(file, PathCheckRead, cfg); err != nil {
		t.Errorf("read: %v", err)
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	cfg := testConfig(t)
	allowed := t.TempDir()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	file := filepath.Join(allowed, "in.jsonl")
	touch(t, file)
	if err := ValidatePath(file, PathCheckRead, cfg); err != nil {
		t.Errorf("expected allowed path to pass, got %v", err)
	}
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowUnsafePaths = true
	dir := t.TempDir()

	if err := ValidatePath(filepath.Join(dir, "out.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("write outside exports with allow_unsafe_paths: %v", err)
	}
	if err := ValidatePath(filepath.Join(dir, "out.txt"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("extension still enforced, got %v", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	for _, unsafe := range []bool{false, true} {
		cfg := testConfig(t)
		cfg.AllowUnsafePaths = unsafe

		target := filepath.Join(t.TempDir(), "secret.jsonl")
		touch(t, target)
		link := filepath.Join(cfg.ExportsDir(), "link.jsonl")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}

		for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
			if err := ValidatePath(link, mode, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("unsafe=%v mode=%d: got %v, want INVALID_REQUEST", unsafe, mode, err)
			}
		}
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.jsonl", false},
		{"../file.jsonl", true},
		{"/home/../etc/passwd", true},
		{"./file.jsonl", false},
		{"file..name.jsonl", false},
	}
	for _, tc := range tests {
		if got := containsTraversal(tc.path); got != tc.contains {
			t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.contains)
		}
	}
}
