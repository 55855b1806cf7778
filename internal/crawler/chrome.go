package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/jobfeedworker/logger"

	pw "github.com/playwright-community/playwright-go"
)

// ChromeOptions configures the headless Chromium renderer
type ChromeOptions struct {
	Headless       bool
	SlowMo         time.Duration
	ExecutablePath string
	UserAgent      string
	Timeout        time.Duration
}

// ChromeRenderer renders pages with Chromium driven by Playwright. Every call
// owns a fresh driver, browser and page, and releases all three before
// returning.
type ChromeRenderer struct {
	opts ChromeOptions
	log  *logger.Logger
}

var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer creates a Playwright-backed renderer
func NewChromeRenderer(opts ChromeOptions, log *logger.Logger) *ChromeRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ChromeRenderer{opts: opts, log: log}
}

// Install downloads the Playwright driver and Chromium if missing
func (r *ChromeRenderer) Install() error {
	return pw.Install(&pw.RunOptions{
		Browsers:            []string{"chromium"},
		SkipInstallBrowsers: r.opts.ExecutablePath != "",
	})
}

// Render navigates to url, waits for the network to go idle and returns the
// rendered HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		html, err := r.render(url)
		done <- result{html: html, err: err}
	}()

	// Playwright calls are not context aware; the navigation timeout bounds
	// the goroutine after ctx gives up on it.
	select {
	case res := <-done:
		return res.html, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("render %s: %w", url, ctx.Err())
	}
}

func (r *ChromeRenderer) render(url string) (string, error) {
	started := time.Now()

	driver, err := pw.Run()
	if err != nil {
		return "", fmt.Errorf("start playwright: %w", err)
	}
	defer func() {
		if err := driver.Stop(); err != nil {
			r.log.Warn().Err(err).Msg("Failed to stop playwright driver")
		}
	}()

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(r.opts.Headless),
		SlowMo:   pw.Float(float64(r.opts.SlowMo.Milliseconds())),
	}
	if r.opts.ExecutablePath != "" {
		launch.ExecutablePath = pw.String(r.opts.ExecutablePath)
	}
	browser, err := driver.Chromium.Launch(launch)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer browser.Close()

	pageOpts := pw.BrowserNewPageOptions{}
	if r.opts.UserAgent != "" {
		pageOpts.UserAgent = pw.String(r.opts.UserAgent)
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	timeoutMs := float64(r.opts.Timeout.Milliseconds())
	page.SetDefaultTimeout(timeoutMs)

	if _, err := page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(timeoutMs),
	}); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}

	r.log.Debug().
		Str("url", url).
		Int("bytes", len(content)).
		Dur("elapsed", time.Since(started)).
		Msg("Rendered page")

	return content, nil
}
