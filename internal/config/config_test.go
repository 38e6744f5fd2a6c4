package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("ENGINE_PROVIDER")
	os.Unsetenv("DATABASE_DRIVER")
	os.Unsetenv("PORT")
	os.Unsetenv("CACHE_TTL_SECONDS")

	cfg := Load()

	if cfg.Engine.Provider != "local" {
		t.Errorf("expected default engine provider 'local', got '%s'", cfg.Engine.Provider)
	}

	if cfg.Database.Driver != "memory" {
		t.Errorf("expected default database driver 'memory', got '%s'", cfg.Database.Driver)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}

	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected default cache TTL 5m, got %v", cfg.Cache.TTL)
	}

	if cfg.Recognition.DuplicateThreshold != 95.0 {
		t.Errorf("expected default duplicate threshold 95.0, got %f", cfg.Recognition.DuplicateThreshold)
	}

	if cfg.Recognition.MatchThreshold != 80.0 {
		t.Errorf("expected default match threshold 80.0, got %f", cfg.Recognition.MatchThreshold)
	}

	if cfg.Recognition.MaxMatches != 5 {
		t.Errorf("expected default max matches 5, got %d", cfg.Recognition.MaxMatches)
	}
}

func TestLoad_EmbeddedThresholds(t *testing.T) {
	cfg := Load()

	if cfg.Quality.MinBrightness != 0.2 {
		t.Errorf("expected min brightness 0.2, got %f", cfg.Quality.MinBrightness)
	}

	if cfg.Quality.MaxBrightness != 0.8 {
		t.Errorf("expected max brightness 0.8, got %f", cfg.Quality.MaxBrightness)
	}

	if cfg.Quality.MinContrast != 20.0 {
		t.Errorf("expected min contrast 20.0, got %f", cfg.Quality.MinContrast)
	}

	if cfg.Quality.MinFaceSize != 100 {
		t.Errorf("expected min face size 100, got %d", cfg.Quality.MinFaceSize)
	}

	if cfg.Quality.LivenessPass != 0.95 {
		t.Errorf("expected liveness pass 0.95, got %f", cfg.Quality.LivenessPass)
	}
}

func TestLoad_QualityEnvOverrides(t *testing.T) {
	t.Setenv("MIN_BRIGHTNESS", "0.3")
	t.Setenv("MAX_BRIGHTNESS", "0.9")
	t.Setenv("MIN_CONTRAST", "15")
	t.Setenv("MIN_FACE_SIZE", "120")
	t.Setenv("MAX_HEAD_POSE", "25")
	t.Setenv("LIVENESS_PASS", "0.8")

	cfg := Load()

	if cfg.Quality.MinBrightness != 0.3 {
		t.Errorf("expected min brightness 0.3, got %f", cfg.Quality.MinBrightness)
	}
	if cfg.Quality.MaxBrightness != 0.9 {
		t.Errorf("expected max brightness 0.9, got %f", cfg.Quality.MaxBrightness)
	}
	if cfg.Quality.MinContrast != 15.0 {
		t.Errorf("expected min contrast 15.0, got %f", cfg.Quality.MinContrast)
	}
	if cfg.Quality.MinFaceSize != 120 {
		t.Errorf("expected min face size 120, got %d", cfg.Quality.MinFaceSize)
	}
	if cfg.Quality.MaxHeadPose != 25.0 {
		t.Errorf("expected max head pose 25.0, got %f", cfg.Quality.MaxHeadPose)
	}
	if cfg.Quality.LivenessPass != 0.8 {
		t.Errorf("expected liveness pass 0.8, got %f", cfg.Quality.LivenessPass)
	}

	// Unparsable values fall back to the embedded defaults.
	t.Setenv("MIN_BRIGHTNESS", "bright")
	if Load().Quality.MinBrightness != 0.2 {
		t.Error("expected invalid override to keep the embedded default")
	}
}

func TestLoad_EngineConfig(t *testing.T) {
	t.Setenv("ENGINE_PROVIDER", "remote")
	t.Setenv("ENGINE_URL", "http://engine.test:9000")
	t.Setenv("ENGINE_COLLECTION", "staff")

	cfg := Load()

	if cfg.Engine.Provider != "remote" {
		t.Errorf("expected engine provider 'remote', got '%s'", cfg.Engine.Provider)
	}

	if cfg.Engine.URL != "http://engine.test:9000" {
		t.Errorf("expected engine URL 'http://engine.test:9000', got '%s'", cfg.Engine.URL)
	}

	if cfg.Engine.Collection != "staff" {
		t.Errorf("expected collection 'staff', got '%s'", cfg.Engine.Collection)
	}
}

func TestLoad_DatabaseConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://test@localhost/registry")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "10")

	cfg := Load()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected driver 'postgres', got '%s'", cfg.Database.Driver)
	}

	if cfg.Database.URL != "postgres://test@localhost/registry" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}

	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected max open conns 10, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("PORT", "invalid")

	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected fallback port 8080 for invalid input, got %d", cfg.Server.Port)
	}
}

func TestLoad_NegativeInt(t *testing.T) {
	t.Setenv("MAX_MATCHES", "-3")

	cfg := Load()

	if cfg.Recognition.MaxMatches != 5 {
		t.Errorf("expected fallback max matches 5 for negative input, got %d", cfg.Recognition.MaxMatches)
	}
}

func TestLoad_InvalidFloat(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "not-a-number")

	cfg := Load()

	if cfg.Recognition.MatchThreshold != 80.0 {
		t.Errorf("expected fallback match threshold 80.0 for invalid input, got %f", cfg.Recognition.MatchThreshold)
	}
}

func TestLoad_CustomThresholdOverride(t *testing.T) {
	t.Setenv("DUPLICATE_THRESHOLD", "97.5")

	cfg := Load()

	if cfg.Recognition.DuplicateThreshold != 97.5 {
		t.Errorf("expected duplicate threshold 97.5, got %f", cfg.Recognition.DuplicateThreshold)
	}
}
