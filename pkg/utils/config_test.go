package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("missing env file must not fail: %v", err)
	}

	if config.Hold.MaxPerSession != 8 {
		t.Errorf("expected cap 8, got %d", config.Hold.MaxPerSession)
	}
	if config.Hold.TTL != 10*time.Minute || config.Hold.SweepInterval != time.Minute {
		t.Errorf("unexpected hold timings %+v", config.Hold)
	}
	if config.AMQP.Exchange != "seat.events" {
		t.Errorf("unexpected exchange %q", config.AMQP.Exchange)
	}
	if len(config.App.CORSOrigins) != 2 {
		t.Errorf("expected 2 default origins, got %v", config.App.CORSOrigins)
	}
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=9090\nMAX_HELD_SEATS=4\nSTORE_DRIVER=Memory\nHOLD_TTL=90s\nSEED_SECTIONS=VIP, GA\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if config.App.Port != "7070" {
		t.Errorf("environment must override the file, got port %q", config.App.Port)
	}
	if config.Hold.MaxPerSession != 4 || config.Hold.TTL != 90*time.Second {
		t.Errorf("unexpected hold config %+v", config.Hold)
	}
	if config.App.StoreDriver != StoreDriverMemory {
		t.Errorf("expected memory driver, got %q", config.App.StoreDriver)
	}
	if len(config.Seed.Sections) != 2 || config.Seed.Sections[1] != "GA" {
		t.Errorf("unexpected seed sections %v", config.Seed.Sections)
	}
}
