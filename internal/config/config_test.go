package config

import (
	"testing"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "secret",
		DBName: "media", SSLMode: "disable",
	}
	expected := "postgres://app:secret@db:5432/media?sslmode=disable"
	if got := cfg.DSN(); got != expected {
		t.Errorf("got %q, expected %q", got, expected)
	}
}

func TestRabbitMQConfig_URL(t *testing.T) {
	cfg := RabbitMQConfig{Host: "mq", Port: 5672, User: "app", Password: "secret", VHost: "/"}
	expected := "amqp://app:secret@mq:5672/"
	if got := cfg.URL(); got != expected {
		t.Errorf("got %q, expected %q", got, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6379}
	if got := cfg.Addr(); got != "cache:6379" {
		t.Errorf("got %q", got)
	}
}

func TestThumbnailConfig_SizeSpecs(t *testing.T) {
	t.Run("empty falls back to the stock set", func(t *testing.T) {
		specs, err := ThumbnailConfig{}.SizeSpecs()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(specs) != 3 || specs[0].Name != "large" {
			t.Errorf("specs: %+v", specs)
		}
	})

	t.Run("parses a configured set", func(t *testing.T) {
		cfg := ThumbnailConfig{Sizes: `[
			{"name": "hero", "constraint_pixels": 1200, "strategy": "scale"},
			{"name": "tile", "constraint_pixels": 150, "strategy": "square-crop"}
		]`}
		specs, err := cfg.SizeSpecs()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(specs) != 2 {
			t.Fatalf("got %d specs", len(specs))
		}
		if specs[0].Name != "hero" || specs[0].ConstraintPixels != 1200 || specs[0].Strategy != model.StrategyScale {
			t.Errorf("hero: %+v", specs[0])
		}
		if specs[1].Strategy != model.StrategySquareCrop {
			t.Errorf("tile: %+v", specs[1])
		}
	})

	tests := []struct {
		name  string
		sizes string
	}{
		{"malformed JSON", `[{"name": "hero"`},
		{"empty array", `[]`},
		{"missing name", `[{"constraint_pixels": 100, "strategy": "scale"}]`},
		{"non-positive constraint", `[{"name": "hero", "constraint_pixels": 0, "strategy": "scale"}]`},
		{"unknown strategy", `[{"name": "hero", "constraint_pixels": 100, "strategy": "stretch"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (ThumbnailConfig{Sizes: tt.sizes}).SizeSpecs(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTranscodeConfig_ProfileTable(t *testing.T) {
	t.Run("stock table", func(t *testing.T) {
		table, err := TranscodeConfig{}.ProfileTable()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, key := range []string{"mp4", "webm", "mp3", "ogg", "pdf"} {
			if _, ok := table.Lookup(key); !ok {
				t.Errorf("stock profile %q missing", key)
			}
		}
	})

	t.Run("configured profile overrides the stock entry", func(t *testing.T) {
		cfg := TranscodeConfig{Profiles: `[
			{"key": "mp4", "media_class": "video", "folder": "h265", "extension": "mp4",
			 "args": ["-y", "-i", "{input}", "-c:v", "libx265", "{output}"]}
		]`}
		table, err := cfg.ProfileTable()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p, ok := table.Lookup("mp4")
		if !ok {
			t.Fatal("mp4 profile missing")
		}
		if p.Folder != "h265" {
			t.Errorf("override lost: %+v", p)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, err := (TranscodeConfig{Profiles: `[{`}).ProfileTable(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("incomplete profile", func(t *testing.T) {
		cfg := TranscodeConfig{Profiles: `[{"key": "avi", "media_class": "video"}]`}
		if _, err := cfg.ProfileTable(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port == 0 {
		t.Error("server port default not applied")
	}
	if cfg.Thumbnail.DefaultPositionPercentage != 25 {
		t.Errorf("position default: got %d", cfg.Thumbnail.DefaultPositionPercentage)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("storage backend default: got %q", cfg.Storage.Backend)
	}
}
