package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ============================================================================
// Header Resolution
// ============================================================================

func TestResolve(t *testing.T) {
	aliases := DefaultFieldAliases()

	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"email", FieldEmail, true},
		{"Email Address", FieldEmail, true},
		{"E-MAIL", FieldEmail, true},
		{"Contact Name", FieldFullName, true},
		{"Given Name", FieldFirstName, true},
		{"Surname", FieldLastName, true},
		{"Work Phone", FieldPhone, true},
		{"Job Title", FieldJobTitle, true},
		{"Street Address", FieldAddress, true},
		{"Comments", FieldNotes, true},

		// "Company Name" overlaps both organization ("company") and
		// fullName ("name"); the longer overlap wins.
		{"Company Name", FieldOrganization, true},

		// A bare "name" ties across several fields; the earliest field
		// in table order keeps it.
		{"name", FieldFullName, true},

		{"zodiac", "", false},
		{"", "", false},
		{"!!!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := aliases.Resolve(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.header, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Email Address", "emailaddress"},
		{"E-MAIL", "email"},
		{"  first_name  ", "firstname"},
		{"Phone #2", "phone2"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := normalizeHeader(tt.in); got != tt.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ============================================================================
// Alias Override Files
// ============================================================================

func writeAliasFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	return path
}

func TestLoadFieldAliases_EmptyPathUsesDefaults(t *testing.T) {
	aliases, err := LoadFieldAliases("")
	if err != nil {
		t.Fatalf("LoadFieldAliases() error = %v", err)
	}
	if field, ok := aliases.Resolve("email"); !ok || field != FieldEmail {
		t.Errorf("Resolve(email) = %q, %v; want default mapping", field, ok)
	}
}

func TestLoadFieldAliases_OverrideReplacesField(t *testing.T) {
	path := writeAliasFile(t, "email:\n  - courriel\n")

	aliases, err := LoadFieldAliases(path)
	if err != nil {
		t.Fatalf("LoadFieldAliases() error = %v", err)
	}

	if field, ok := aliases.Resolve("Courriel"); !ok || field != FieldEmail {
		t.Errorf("Resolve(Courriel) = %q, %v; want the overridden mapping", field, ok)
	}

	// The override replaces the email entry outright.
	if _, ok := aliases.Resolve("email"); ok {
		t.Error("Resolve(email) still matches after override replaced the alias list")
	}

	// Untouched fields keep their defaults.
	if field, ok := aliases.Resolve("phone"); !ok || field != FieldPhone {
		t.Errorf("Resolve(phone) = %q, %v; want default mapping", field, ok)
	}
}

func TestLoadFieldAliases_UnknownField(t *testing.T) {
	path := writeAliasFile(t, "favoriteColor:\n  - color\n")

	_, err := LoadFieldAliases(path)
	if err == nil {
		t.Fatal("LoadFieldAliases() expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Errorf("error = %v, want mention of unknown field", err)
	}
}

func TestLoadFieldAliases_EmptyAliasList(t *testing.T) {
	path := writeAliasFile(t, "email: []\n")

	_, err := LoadFieldAliases(path)
	if err == nil {
		t.Fatal("LoadFieldAliases() expected error for empty alias list")
	}
	if !strings.Contains(err.Error(), "no aliases") {
		t.Errorf("error = %v, want mention of missing aliases", err)
	}
}

func TestLoadFieldAliases_MissingFile(t *testing.T) {
	_, err := LoadFieldAliases(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFieldAliases() expected error for missing file")
	}
}

func TestLoadFieldAliases_InvalidYAML(t *testing.T) {
	path := writeAliasFile(t, "email: [unclosed\n")

	_, err := LoadFieldAliases(path)
	if err == nil {
		t.Fatal("LoadFieldAliases() expected error for invalid YAML")
	}
}
