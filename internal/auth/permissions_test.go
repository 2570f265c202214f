package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPermissions_Success(t *testing.T) {
	tmpDir := t.TempDir()
	permFile := filepath.Join(tmpDir, "permissions.yml")

	content := `roles:
  PATIENT:
    - dossier:own
    - access:manage
  DOCTOR:
    - dossier:read
    - dossier:write
    - access:view
  ADMIN:
    - user:manage
`
	if err := os.WriteFile(permFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test permissions file: %v", err)
	}

	perms, err := LoadPermissions(permFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := len(perms["DOCTOR"]); got != 3 {
		t.Errorf("Expected 3 permissions for DOCTOR, got %d", got)
	}
	if !contains(perms["PATIENT"], "access:manage") {
		t.Error("Expected PATIENT to have 'access:manage' permission")
	}
	if contains(perms["ADMIN"], "dossier:read") {
		t.Error("ADMIN must not read dossiers")
	}
}

func TestLoadPermissions_FileNotFound(t *testing.T) {
	_, err := LoadPermissions("/nonexistent/permissions.yml")
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
}

func TestLoadPermissions_InvalidYAML(t *testing.T) {
	permFile := filepath.Join(t.TempDir(), "permissions.yml")
	if err := os.WriteFile(permFile, []byte("roles: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write test permissions file: %v", err)
	}
	if _, err := LoadPermissions(permFile); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestParsePermissions_NoRoles(t *testing.T) {
	if _, err := ParsePermissions([]byte("other: true\n")); err == nil {
		t.Fatal("Expected error when no roles are defined")
	}
}

func TestParsePermissions_UnknownRole(t *testing.T) {
	if _, err := ParsePermissions([]byte("roles:\n  NURSE:\n    - dossier:read\n")); err == nil {
		t.Fatal("Expected error for a role the platform does not know")
	}
}

func TestParsePermissions_NormalizesRoleCase(t *testing.T) {
	perms, err := ParsePermissions([]byte("roles:\n  doctor:\n    - dossier:read\n"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !contains(perms[RoleDoctor], "dossier:read") {
		t.Errorf("Expected lower-case role key to map to %s", RoleDoctor)
	}
}

func TestRepositoryPermissionsFile(t *testing.T) {
	perms, err := LoadPermissions(filepath.Join("..", "..", "permissions.yml"))
	if err != nil {
		t.Fatalf("Expected repository permissions.yml to load, got: %v", err)
	}

	cases := []struct {
		role       string
		permission string
		want       bool
	}{
		{RolePatient, "dossier:own", true},
		{RolePatient, "dossier:read", false},
		{RoleDoctor, "dossier:write", true},
		{RoleDoctor, "access:manage", false},
		{RoleAdmin, "user:manage", true},
		{RoleAdmin, "dossier:read", false},
	}
	for _, tc := range cases {
		pr := &Principal{UserID: "u", Roles: []string{tc.role}}
		if got := HasPermission(pr, tc.permission, perms); got != tc.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.permission, got, tc.want)
		}
	}
}

func TestHasPermission_CaseInsensitiveRole(t *testing.T) {
	perms := Permissions{"DOCTOR": {"dossier:read"}}
	pr := &Principal{UserID: "u", Roles: []string{"doctor"}}
	if !HasPermission(pr, "dossier:read", perms) {
		t.Error("Expected lowercase role to match uppercase permissions entry")
	}
}

func TestHasPermission_NoRoles(t *testing.T) {
	perms := Permissions{"DOCTOR": {"dossier:read"}}
	if HasPermission(&Principal{UserID: "u"}, "dossier:read", perms) {
		t.Error("Principal without roles must not have permissions")
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
