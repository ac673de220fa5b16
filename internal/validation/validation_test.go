package validation

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidateEntryName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "report.txt", nil},
		{"dots inside", "data..v2.csv", nil},
		{"spaces", "my notes", nil},
		{"empty", "", ErrEmptyName},
		{"dot", ".", ErrReservedName},
		{"dotdot", "..", ErrReservedName},
		{"separator", "a/b", ErrSeparatorInName},
		{"null byte", "a\x00b", ErrNullByte},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntryName(tt.input)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRemotePath(t *testing.T) {
	if err := ValidateRemotePath("/docs/a.txt"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateRemotePath("docs"); !errors.Is(err, ErrRelativePath) {
		t.Errorf("expected ErrRelativePath, got %v", err)
	}
	if err := ValidateRemotePath("/a\x00"); !errors.Is(err, ErrNullByte) {
		t.Errorf("expected ErrNullByte, got %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	for _, ok := range []string{"alice", "bob_2", "admin"} {
		if err := ValidateUsername(ok); err != nil {
			t.Errorf("ValidateUsername(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "two words", "tab\t", " lead"} {
		if err := ValidateUsername(bad); err == nil {
			t.Errorf("ValidateUsername(%q) should fail", bad)
		}
	}
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"644", 0644, false},
		{"0755", 0755, false},
		{"0o700", 0700, false},
		{"7", 07, false},
		{"000", 0, false},
		{"888", 0, true},
		{"1777", 0, true},
		{"rwx", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePermissions(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePermissions(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePermissions(%q) = %o, want %o", tt.in, got, tt.want)
		}
	}
}

func TestValidateLocalFilename(t *testing.T) {
	for _, ok := range []string{"a.txt", "foo..bar"} {
		if err := ValidateLocalFilename(ok); err != nil {
			t.Errorf("ValidateLocalFilename(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "..", ".", `a\b`, "a/b", "x\x00"} {
		if err := ValidateLocalFilename(bad); err == nil {
			t.Errorf("ValidateLocalFilename(%q) should fail", bad)
		}
	}
}

func TestValidatePathInDirectory(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"relative inside", "sub/file.txt", false},
		{"absolute inside", filepath.Join(base, "x.txt"), false},
		{"base itself", base, false},
		{"escape", "../../etc/passwd", true},
		{"absolute outside", filepath.Join(filepath.Dir(base), "other"), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathInDirectory(tt.target, base)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathInDirectory(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
		})
	}
}
