package browser

import (
	"fmt"
	"os"

	"github.com/playwright-community/playwright-go"

	"github.com/adobe/aem-test-harness/framework"
	"github.com/adobe/aem-test-harness/framework/helpers"
	"github.com/adobe/aem-test-harness/framework/opt"
)

// Supported browser engine names.
const (
	Chromium = "chromium"
	Firefox  = "firefox"
	WebKit   = "webkit"
)

// LaunchConfig holds the settings that apply to the whole browser process.
type LaunchConfig struct {
	Browser  string
	Headless bool
	Proxy    opt.Maybe[string]
	// SkipInstall disables downloading the driver and browser before launching. It is also
	// turned on by setting PLAYWRIGHT_PREINSTALLED=1.
	SkipInstall bool
	Logger      framework.Logger
}

// LaunchOption is an option for Launch.
type LaunchOption = helpers.ConfigOptionFunc[LaunchConfig]

func WithBrowser(name string) LaunchOption {
	return func(c *LaunchConfig) error {
		switch name {
		case Chromium, Firefox, WebKit:
			c.Browser = name
			return nil
		default:
			return fmt.Errorf("unknown browser %q (expected %s, %s or %s)", name, Chromium, Firefox, WebKit)
		}
	}
}

func Headless(headless bool) LaunchOption {
	return func(c *LaunchConfig) error {
		c.Headless = headless
		return nil
	}
}

// WithProxy routes all browser traffic through the given proxy server, if one is defined.
func WithProxy(proxy opt.Maybe[string]) LaunchOption {
	return func(c *LaunchConfig) error {
		c.Proxy = proxy
		return nil
	}
}

func WithLogger(logger framework.Logger) LaunchOption {
	return func(c *LaunchConfig) error {
		c.Logger = logger
		return nil
	}
}

func NewLaunchConfig(options ...LaunchOption) (LaunchConfig, error) {
	c := LaunchConfig{
		Browser:     Chromium,
		Headless:    true,
		SkipInstall: os.Getenv("PLAYWRIGHT_PREINSTALLED") == "1",
		Logger:      framework.NullLogger(),
	}
	if err := helpers.ApplyOptions(&c, options...); err != nil {
		return LaunchConfig{}, err
	}
	return c, nil
}

func (c LaunchConfig) launchOptions() playwright.BrowserTypeLaunchOptions {
	o := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.Headless),
	}
	if c.Proxy.IsDefined() {
		o.Proxy = &playwright.Proxy{Server: c.Proxy.Value()}
	}
	return o
}

// Sessions creates isolated browser sessions. *Launcher is the real implementation.
type Sessions interface {
	NewSession(opts SessionOptions) (Session, error)
}

// Launcher owns the Playwright driver and one running browser. Sessions created from it share
// the browser process but nothing else.
type Launcher struct {
	config  LaunchConfig
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts the Playwright driver and the configured browser.
func Launch(options ...LaunchOption) (*Launcher, error) {
	config, err := NewLaunchConfig(options...)
	if err != nil {
		return nil, err
	}
	if !config.SkipInstall {
		config.Logger.Printf("Installing Playwright driver and %s", config.Browser)
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{config.Browser}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	var browserType playwright.BrowserType
	switch config.Browser {
	case Firefox:
		browserType = pw.Firefox
	case WebKit:
		browserType = pw.WebKit
	default:
		browserType = pw.Chromium
	}
	config.Logger.Printf("Launching %s (headless: %t, proxy: %s)", config.Browser, config.Headless, helpers.RedactProxy(config.Proxy))
	browser, err := browserType.Launch(config.launchOptions())
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch %s: %w", config.Browser, err)
	}
	return &Launcher{config: config, pw: pw, browser: browser}, nil
}

// Config returns the settings the browser was launched with.
func (l *Launcher) Config() LaunchConfig {
	return l.config
}

// Close shuts down the browser and the Playwright driver.
func (l *Launcher) Close() error {
	if err := l.browser.Close(); err != nil {
		_ = l.pw.Stop()
		return err
	}
	return l.pw.Stop()
}
