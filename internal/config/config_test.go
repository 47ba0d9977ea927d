package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.AppViewURL != "https://public.api.bsky.app" || cfg.FetchTimeout != 10*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":          "9090",
		"APPVIEW_URL":   "http://appview.local",
		"REDIS_URL":     "redis://localhost:6379/0",
		"JETSTREAM_URL": "wss://jetstream.test/subscribe",
		"FETCH_TIMEOUT": "3s",
		"THEME_CONFIG":  "/etc/overlay/theme.json",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "9090" || cfg.AppViewURL != "http://appview.local" || cfg.FetchTimeout != 3*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RedisURL == "" || cfg.JetstreamURL == "" || cfg.ThemeConfig != "/etc/overlay/theme.json" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	for _, env := range []map[string]string{
		{"PORT": "http"},
		{"FETCH_TIMEOUT": "soon"},
		{"FETCH_TIMEOUT": "-1s"},
	} {
		if _, err := FromEnv(envMap(env)); err == nil {
			t.Errorf("FromEnv(%v) should fail", env)
		}
	}
}

func TestLoadThemeConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		cfg := LoadThemeConfig(filepath.Join(dir, "absent.json"))
		if *cfg != *DefaultThemeConfig() {
			t.Errorf("cfg = %+v, want defaults", cfg)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte("{"), 0o644)
		if cfg := LoadThemeConfig(path); *cfg != *DefaultThemeConfig() {
			t.Errorf("cfg = %+v, want defaults", cfg)
		}
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "theme.json")
		os.WriteFile(path, []byte(`{"dark":{"borderColor":"#111111"}}`), 0o644)
		cfg := LoadThemeConfig(path)
		if cfg.Dark.BorderColor != "#111111" {
			t.Errorf("dark border = %q", cfg.Dark.BorderColor)
		}
		if cfg.Dark.Backdrop != DefaultThemeConfig().Dark.Backdrop || cfg.Light != DefaultThemeConfig().Light {
			t.Errorf("cfg = %+v", cfg)
		}
	})
}

func TestReloadThemeConfigPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.json")
	os.WriteFile(path, []byte(`{"light":{"borderColor":"#aaaaaa"}}`), 0o644)
	SetThemeConfigPath(path)
	t.Cleanup(func() {
		SetThemeConfigPath("config/theme.json")
		ReloadThemeConfig()
	})

	ReloadThemeConfig()
	if got := GetThemeConfig().Light.BorderColor; got != "#aaaaaa" {
		t.Fatalf("light border = %q, want #aaaaaa", got)
	}

	os.WriteFile(path, []byte(`{"light":{"borderColor":"#bbbbbb"}}`), 0o644)
	ReloadThemeConfig()
	if got := GetThemeConfig().Light.BorderColor; got != "#bbbbbb" {
		t.Errorf("light border after reload = %q, want #bbbbbb", got)
	}
}

func TestThemeFromRequest(t *testing.T) {
	tests := []struct {
		cookie string
		want   string
	}{
		{"", ThemeLight},
		{"dark", ThemeDark},
		{"light", ThemeLight},
		{"solarized", ThemeLight},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.cookie != "" {
			req.AddCookie(&http.Cookie{Name: ThemeCookie, Value: tt.cookie})
		}
		if got := ThemeFromRequest(req); got != tt.want {
			t.Errorf("cookie %q: theme = %q, want %q", tt.cookie, got, tt.want)
		}
	}

	cfg := DefaultThemeConfig()
	if cfg.Palette(ThemeDark) != cfg.Dark || cfg.Palette("other") != cfg.Light {
		t.Error("Palette should pick dark only for the dark theme")
	}
}
