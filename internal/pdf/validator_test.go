package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	valid := writeFixture(t, dir, "valid.pdf", 2, "field")
	garbage := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(garbage, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	validator := NewValidator(1024 * 1024)

	tests := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{name: "empty path", path: ""},
		{name: "non-existent file", path: "/non/existent/file.pdf"},
		{name: "garbage", path: garbage},
		{name: "valid", path: valid, expectValid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateFile(PDFValidateFileRequest{Path: tt.path})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Valid != tt.expectValid {
				t.Errorf("expected Valid=%v but got %v (%s)", tt.expectValid, result.Valid, result.Message)
			}
			if result.Path != tt.path {
				t.Errorf("expected Path=%s but got %s", tt.path, result.Path)
			}
			if !tt.expectValid && result.Message == "" {
				t.Errorf("expected validation message for invalid file")
			}
			if tt.expectValid {
				if result.Report == nil {
					t.Fatal("expected read back report")
				}
				if result.Report.Pages != 2 || result.Report.Widgets != 1 {
					t.Errorf("unexpected report %+v", result.Report)
				}
			}
		})
	}
}

func TestValidator_ValidateFileInfo(t *testing.T) {
	validator := NewValidator(1024)
	dir := t.TempDir()

	write := func(name string, size int) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{name: "valid", path: write("ok.pdf", 10)},
		{name: "upper case extension", path: write("OK.PDF", 10)},
		{name: "too large", path: write("large.pdf", 2048), expectError: true},
		{name: "empty", path: write("empty.pdf", 0), expectError: true},
		{name: "not a pdf", path: write("doc.txt", 10), expectError: true},
		{name: "directory", path: dir, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := os.Stat(tt.path)
			if err != nil {
				t.Fatal(err)
			}
			err = validator.ValidateFileInfo(tt.path, info)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	if validator.IsValidPDF("/non/existent/file.pdf") {
		t.Error("missing file reported as valid")
	}
}
