package config

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
)

// Theme names accepted in the theme cookie
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ThemeCookie is the cookie that selects the theme
const ThemeCookie = "theme"

// Palette holds the colour tokens used by the overlay
type Palette struct {
	BorderColor string `json:"borderColor"`
	Backdrop    string `json:"backdrop"`
}

// ThemeConfig represents theme.json
type ThemeConfig struct {
	Light Palette `json:"light"`
	Dark  Palette `json:"dark"`
}

var (
	themeConfig     *ThemeConfig
	themeConfigMu   sync.RWMutex
	themeConfigOnce sync.Once
	themeConfigPath = "config/theme.json"
)

// SetThemeConfigPath sets the file read on first use. Call before GetThemeConfig.
func SetThemeConfigPath(path string) {
	themeConfigMu.Lock()
	defer themeConfigMu.Unlock()
	themeConfigPath = path
}

// GetThemeConfig returns the current theme configuration (thread-safe)
func GetThemeConfig() *ThemeConfig {
	themeConfigOnce.Do(func() {
		themeConfigMu.Lock()
		defer themeConfigMu.Unlock()
		if themeConfig == nil {
			themeConfig = LoadThemeConfig(themeConfigPath)
		}
	})

	themeConfigMu.RLock()
	defer themeConfigMu.RUnlock()
	return themeConfig
}

// ReloadThemeConfig re-reads the configured file
func ReloadThemeConfig() {
	themeConfigMu.RLock()
	path := themeConfigPath
	themeConfigMu.RUnlock()

	cfg := LoadThemeConfig(path)
	themeConfigMu.Lock()
	themeConfig = cfg
	themeConfigMu.Unlock()
	slog.Info("theme configuration reloaded", "path", path)
}

// LoadThemeConfig reads a theme file. Missing or invalid files yield the defaults,
// and palette fields left empty in the file keep their default value.
func LoadThemeConfig(path string) *ThemeConfig {
	defaults := DefaultThemeConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("theme config file not found, using defaults", "path", path)
		} else {
			slog.Warn("could not read theme config, using defaults", "path", path, "error", err)
		}
		return defaults
	}

	var cfg ThemeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Error("invalid JSON in theme config, using defaults", "path", path, "error", err)
		return defaults
	}

	cfg.Light = cfg.Light.withDefaults(defaults.Light)
	cfg.Dark = cfg.Dark.withDefaults(defaults.Dark)
	slog.Info("loaded theme configuration", "path", path)
	return &cfg
}

// DefaultThemeConfig returns the built-in palettes
func DefaultThemeConfig() *ThemeConfig {
	return &ThemeConfig{
		Light: Palette{BorderColor: "#ffffff", Backdrop: "rgba(0,0,0,0.6)"},
		Dark:  Palette{BorderColor: "#2e4052", Backdrop: "rgba(0,0,0,0.6)"},
	}
}

func (p Palette) withDefaults(d Palette) Palette {
	if p.BorderColor == "" {
		p.BorderColor = d.BorderColor
	}
	if p.Backdrop == "" {
		p.Backdrop = d.Backdrop
	}
	return p
}

// Palette returns the palette for a theme name; unknown names get the light palette
func (c *ThemeConfig) Palette(theme string) Palette {
	if theme == ThemeDark {
		return c.Dark
	}
	return c.Light
}

// ThemeFromRequest reads the theme cookie, defaulting to light
func ThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(ThemeCookie); err == nil && cookie.Value == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
