// Package render loads pages in a headless Chromium so script-built sale
// pages and product pages can be read as a live DOM.
package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"sjsage522/salewatch/helpers"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/pkg/errors"
)

// DefaultTimeout bounds one page render
const DefaultTimeout = 30 * time.Second

// Options configures the browser connection
type Options struct {
	// ControlURL connects to a running browser. Empty launches a local one.
	ControlURL string
	// Bin overrides the Chromium binary used by the launcher
	Bin string
	// Timeout bounds navigation and load of a single page
	Timeout time.Duration
}

// Renderer owns one browser and opens a fresh tab per request
type Renderer struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
	log      *logger.Logger

	closeOnce sync.Once
}

// New connects to or launches a browser
func New(opts Options) (*Renderer, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Renderer{
		timeout: timeout,
		log:     logger.ForComponent("render"),
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(true).
			NoSandbox(true).
			Leakless(false)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, errors.NewRender("launcher", "failed to launch browser", err)
		}
		r.launcher = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if r.launcher != nil {
			r.launcher.Kill()
		}
		return nil, errors.NewRender(controlURL, "failed to connect to browser", err)
	}
	r.browser = browser

	r.log.Info().Str("control_url", controlURL).Msg("Connected to browser")
	return r, nil
}

// Fetch navigates to url, waits for the load event and returns the
// serialized DOM.
func (r *Renderer) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tab, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", errors.NewRender(url, "failed to open tab", err)
	}
	defer tab.Close()

	if err := tab.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      helpers.DesktopUserAgent,
		AcceptLanguage: "en-US,en;q=0.9,ko-KR;q=0.8",
	}); err != nil {
		return "", errors.NewRender(url, "failed to set user agent", err)
	}

	if err := tab.Navigate(url); err != nil {
		return "", errors.NewRender(url, "navigation failed", err)
	}
	if err := tab.WaitLoad(); err != nil {
		return "", errors.NewRender(url, "page did not finish loading", err)
	}

	markup, err := tab.HTML()
	if err != nil {
		return "", errors.NewRender(url, "failed to read page HTML", err)
	}
	r.log.Debug().Str("url", url).Int("bytes", len(markup)).Msg("Rendered page")
	return markup, nil
}

// Render loads url and parses the rendered DOM with goquery
func (r *Renderer) Render(ctx context.Context, url string) (*goquery.Document, error) {
	markup, err := r.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, errors.NewParsing(url, "failed to parse rendered HTML", err)
	}
	return doc, nil
}

// Close closes the browser and stops a launched process
func (r *Renderer) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.browser != nil {
			if cerr := r.browser.Close(); cerr != nil {
				err = fmt.Errorf("failed to close browser: %w", cerr)
			}
		}
		if r.launcher != nil {
			r.launcher.Kill()
		}
	})
	return err
}
