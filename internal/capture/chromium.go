// Package capture renders the HTML board in headless Chromium and saves it
// as a PNG, e.g. for a lobby display or a status report attachment.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Default viewport of a board snapshot.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second
)

// ReadySelector matches the board root once the server has rendered it.
const ReadySelector = `[data-ready="true"]`

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/board?category=Technical".
	URL string

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration

	// Username / Password are sent as Basic Auth credentials when set.
	Username string
	Password string
}

func (o *CaptureOptions) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// CaptureBoardPNG navigates headless Chromium to opts.URL, waits for
// ReadySelector and writes a full-page PNG to opts.OutputPath.
func CaptureBoardPNG(parentCtx context.Context, opts CaptureOptions) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" {
		tasks = append(tasks, basicAuth(opts.Username, opts.Password))
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts and the final paint settle.
		chromedp.Sleep(300*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

// basicAuth sends an Authorization header with every request of the tab.
func basicAuth(username, password string) chromedp.Action {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + token}),
	}
}
