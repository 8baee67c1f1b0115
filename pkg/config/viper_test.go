package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSearchesDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "service.yaml"), []byte("video:\n  radius_hours: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Load("service", "", t.TempDir(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := v.GetInt("video.radius_hours"); got != 5 {
		t.Fatalf("radius_hours = %d", got)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("APP_VIDEO_BASE_URL", "http://video:9000")

	v, err := Load("absent", "APP", t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := v.GetString("video.base_url"); got != "http://video:9000" {
		t.Fatalf("base_url = %q", got)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)

	v, err := Load("ignored", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := v.GetInt("server.port"); got != 9100 {
		t.Fatalf("port = %d", got)
	}

	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load("ignored", ""); err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}
