package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/user/slidegate/internal/anomaly"
	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/stealth"
)

type Config struct {
	// AppURL is opened before each attempt. Empty keeps the current tab.
	AppURL    string
	ChromeURL string
	// LaunchBrowser starts a local Chrome instead of attaching to ChromeURL.
	LaunchBrowser bool
	Headless      bool

	Viewport          geom.Size
	DeviceScaleFactor float64

	ButtonSelector string
	SliderSelector string
	HandleSelector string

	// Seed drives every random draw of a session. Zero means time seeded.
	Seed           int64
	MaxAttempts    int
	ConnectRetries int

	ScreenshotDir string
	DBPath        string
	LogLevel      string
	LogFile       string

	Anomaly anomaly.Config
	Stealth stealth.Config
}

// Load reads the process configuration from the environment, after merging
// a .env file from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := parser{}
	cfg := &Config{
		AppURL:        getEnv("APP_URL", ""),
		ChromeURL:     getEnv("CHROME_URL", "http://127.0.0.1:9222"),
		LaunchBrowser: p.asBool("LAUNCH_BROWSER", false),
		Headless:      p.asBool("HEADLESS", false),
		Viewport: geom.Size{
			Width:  p.asFloat("VIEWPORT_WIDTH", 1440),
			Height: p.asFloat("VIEWPORT_HEIGHT", 900),
		},
		DeviceScaleFactor: p.asFloat("DEVICE_SCALE_FACTOR", 2),
		ButtonSelector:    getEnv("BUTTON_SELECTOR", ".cf-button__logo"),
		SliderSelector:    getEnv("SLIDER_SELECTOR", ".cf-slide__canvas"),
		HandleSelector:    getEnv("HANDLE_SELECTOR", ".cf-slider__button"),
		Seed:              p.asInt64("SEED", 0),
		MaxAttempts:       p.asInt("MAX_ATTEMPTS", 1),
		ConnectRetries:    p.asInt("CONNECT_RETRIES", 3),
		ScreenshotDir:     getEnv("SCREENSHOT_DIR", "."),
		DBPath:            getEnv("DB_PATH", "slidegate.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		Stealth:           stealth.DefaultConfig(),
	}

	cfg.Anomaly = anomaly.DefaultConfig()
	cfg.Anomaly.OffsetPixels = p.asFloat("OFFSET_PIXELS", cfg.Anomaly.OffsetPixels)
	threshold := p.asInt("WHITE_THRESHOLD", int(cfg.Anomaly.WhiteThreshold))
	if p.err == nil && (threshold < 0 || threshold > 255) {
		p.err = fmt.Errorf("WHITE_THRESHOLD must be within 0..255, got %d", threshold)
	}
	cfg.Anomaly.WhiteThreshold = uint8(threshold)

	if p.err == nil {
		dir, err := anomaly.ParseDirection(getEnv("SCAN_DIRECTION", ""))
		if err != nil {
			p.err = fmt.Errorf("SCAN_DIRECTION: %w", err)
		}
		cfg.Anomaly.Direction = dir
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the solver cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Viewport.Width <= 0 || c.Viewport.Height <= 0:
		return fmt.Errorf("viewport must be positive, got %vx%v", c.Viewport.Width, c.Viewport.Height)
	case c.DeviceScaleFactor <= 0:
		return fmt.Errorf("DEVICE_SCALE_FACTOR must be positive, got %v", c.DeviceScaleFactor)
	case c.MaxAttempts < 1:
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	case c.ConnectRetries < 1:
		return fmt.Errorf("CONNECT_RETRIES must be at least 1, got %d", c.ConnectRetries)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// parser keeps the first conversion error so Load can read every key
// in one pass and report the bad one.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != "" && p.err == nil
}

func (p *parser) fail(key, value string, err error) {
	p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
}

func (p *parser) asBool(key string, fallback bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) asInt(key string, fallback int) int {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) asInt64(key string, fallback int64) int64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) asFloat(key string, fallback float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}
