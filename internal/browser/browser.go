// Package browser connects to Chrome over the DevTools protocol with go-rod
// and exposes a page as the pointer surface the synthesizer drives.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	rodstealth "github.com/go-rod/stealth"

	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/logging"
	"github.com/user/slidegate/internal/retry"
)

type Options struct {
	// ControlURL is the DevTools HTTP endpoint of an already running Chrome.
	ControlURL string
	// Launch starts a private Chrome instead of attaching to ControlURL.
	Launch   bool
	Headless bool
	Retries  int

	Viewport          geom.Size
	DeviceScaleFactor float64
}

type Client struct {
	Browser  *rod.Browser
	opts     Options
	launched bool
}

// New attaches to the Chrome at opts.ControlURL, retrying with backoff, or
// launches one when opts.Launch is set. Attach failures carry the command
// line needed to start Chrome with remote debugging.
func New(ctx context.Context, opts Options) (*Client, error) {
	var wsURL string
	if opts.Launch {
		l := launcher.New().
			Headless(opts.Headless).
			UserDataDir("./.browser_data"). // Persist sessions/cookies
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
	} else {
		logging.Logger.Infof("Attempting to connect to Chrome on %s", opts.ControlURL)
		err := retry.WithExponentialBackoff(ctx, "resolve devtools endpoint", retry.DefaultPolicy(opts.Retries), func(context.Context) error {
			u, err := launcher.ResolveURL(opts.ControlURL)
			if err != nil {
				return err
			}
			wsURL = u
			return nil
		})
		if err != nil {
			logging.Logger.Error(LaunchInstructions(runtime.GOOS, opts.ControlURL))
			return nil, fmt.Errorf("chrome remote debugging not available: %w", err)
		}
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	logging.Logger.Info("Connected to Chrome successfully")

	return &Client{Browser: b, opts: opts, launched: opts.Launch}, nil
}

// Page returns the first open tab, or a new one when there is none, with
// the stealth evasions installed and the viewport emulation applied.
func (c *Client) Page(ctx context.Context) (*rod.Page, error) {
	pages, err := c.Browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	logging.Logger.Infof("Found %d open tab(s)", len(pages))

	var page *rod.Page
	if len(pages) > 0 {
		page = pages.First()
		// Tabs opened before we attached never saw the evasions.
		if _, err := page.EvalOnNewDocument(rodstealth.JS); err != nil {
			return nil, fmt.Errorf("install stealth script: %w", err)
		}
		logging.Logger.Info("Using first open tab")
	} else {
		page, err = rodstealth.Page(c.Browser)
		if err != nil {
			return nil, fmt.Errorf("create stealth tab: %w", err)
		}
		logging.Logger.Info("Created new tab")
	}

	err = page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(c.opts.Viewport.Width),
		Height:            int(c.opts.Viewport.Height),
		DeviceScaleFactor: c.opts.DeviceScaleFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return page, nil
}

// Close shuts Chrome down only when this client launched it. An attached
// browser stays open for the user.
func (c *Client) Close() error {
	if !c.launched {
		return nil
	}
	return c.Browser.Close()
}

// LaunchInstructions explains how to start Chrome so that controlURL is
// reachable, for the given GOOS.
func LaunchInstructions(goos, controlURL string) string {
	port := "9222"
	if u, err := url.Parse(controlURL); err == nil && u.Port() != "" {
		port = u.Port()
	}
	flag := "--remote-debugging-port=" + port

	var cmd string
	switch goos {
	case "darwin":
		cmd = "macOS:\n   /Applications/Google\\ Chrome.app/Contents/MacOS/Google\\ Chrome " + flag
	case "windows":
		cmd = "Windows:\n   \"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe\" " + flag
	default:
		cmd = "Linux:\n   google-chrome " + flag
	}

	var b strings.Builder
	b.WriteString("Could not connect to Chrome debugging port. Please follow these steps:\n")
	b.WriteString("1. Close ALL Chrome/Chromium windows completely\n")
	b.WriteString("2. Start Chrome with remote debugging:\n   " + cmd + "\n")
	b.WriteString("3. Verify by visiting: http://localhost:" + port + " in that Chrome window\n")
	b.WriteString("4. Run this command again")
	return b.String()
}
