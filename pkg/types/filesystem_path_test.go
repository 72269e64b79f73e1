// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestFilesystemPath_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path FilesystemPath
		want bool
	}{
		{"absolute path", FilesystemPath("/home/lab/.drivenets-default-dnroot-passwd.txt"), true},
		{"tilde path", FilesystemPath("~/.drivenets-default-dnroot-passwd.txt"), true},
		{"relative path", FilesystemPath("passwd.txt"), true},
		{"path with spaces", FilesystemPath("/path/to/my file.txt"), true},
		{"dot path", FilesystemPath("."), true},
		{"empty is invalid", FilesystemPath(""), false},
		{"whitespace only is invalid", FilesystemPath("   "), false},
		{"tab only is invalid", FilesystemPath("\t"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, errs := tt.path.IsValid()
			if ok != tt.want {
				t.Errorf("FilesystemPath(%q).IsValid() = %v, want %v", tt.path, ok, tt.want)
			}
			if tt.want {
				if len(errs) > 0 {
					t.Errorf("FilesystemPath(%q).IsValid() returned unexpected errors: %v", tt.path, errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("FilesystemPath(%q).IsValid() returned no errors, want error", tt.path)
			}
			if !errors.Is(errs[0], ErrInvalidFilesystemPath) {
				t.Errorf("error should wrap ErrInvalidFilesystemPath, got: %v", errs[0])
			}
			var fpErr *InvalidFilesystemPathError
			if !errors.As(errs[0], &fpErr) {
				t.Errorf("error should be *InvalidFilesystemPathError, got: %T", errs[0])
			}
		})
	}
}

func TestFilesystemPath_String(t *testing.T) {
	t.Parallel()
	p := FilesystemPath("/usr/bin/tox")
	if p.String() != "/usr/bin/tox" {
		t.Errorf("FilesystemPath.String() = %q, want %q", p.String(), "/usr/bin/tox")
	}
}
