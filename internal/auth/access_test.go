package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAccess(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeAccess(t, `tacacs_user: ops
tacacs_pass: secret
tacacs_servers:
  - 10.0.0.1
  - 10.0.0.2
router_user: rtr
router_pass: rtrsecret
`)
	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.TacacsUser != "ops" || len(a.TacacsServers) != 2 {
		t.Errorf("access = %+v", a)
	}
	if !a.HopConfigured() {
		t.Error("router hop not detected")
	}
}

func TestLoadDirectMode(t *testing.T) {
	path := writeAccess(t, `tacacs_user: ops
tacacs_pass: secret
tacacs_servers: [10.0.0.1]
`)
	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.HopConfigured() {
		t.Error("hop reported configured without router credentials")
	}
}

func TestLoadRejectsMissingUser(t *testing.T) {
	path := writeAccess(t, `tacacs_servers: [10.0.0.1]`)
	if _, err := Load(path); err == nil {
		t.Fatal("want validation error for missing tacacs_user")
	}
}

func TestLoadRejectsEmptyServers(t *testing.T) {
	path := writeAccess(t, `tacacs_user: ops
tacacs_servers: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want validation error for empty server list")
	}
}
