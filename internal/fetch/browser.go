package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MinContentLength is the extracted text length below which a page is assumed to be built by
// JavaScript and worth rendering in a browser.
const MinContentLength = 500

const defaultBrowserTimeout = 30 * time.Second

// dismissBannersJS clicks common cookie/consent "accept" buttons and reports how many it found.
const dismissBannersJS = `(() => {
	const buttons = document.querySelectorAll('button[id*="accept"], button[class*="accept"], button[id*="consent"]');
	buttons.forEach(b => b.click());
	return buttons.length;
})()`

// ShouldUseBrowser reports whether extracted text is too short to trust the plain HTTP fetch.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// Renderer renders pages in headless Chrome. The zero value uses DefaultUserAgent, no proxy
// and a three second settle delay.
type Renderer struct {
	UserAgent string
	ProxyURL  string
	// Settle is how long to wait after the body is ready; menus are often injected late.
	Settle time.Duration
}

// Render loads url and returns the rendered document HTML. Chrome or Chromium must be
// installed.
func (r Renderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = defaultBrowserTimeout
	}
	ua := r.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	settle := r.Settle
	if settle <= 0 {
		settle = 3 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(ua),
	)
	if r.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(r.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	started := time.Now()
	var (
		html      string
		dismissed int
	)
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.Evaluate(dismissBannersJS, &dismissed),
		chromedp.Sleep(settle/3),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", eris.Wrapf(err, "browser rendering failed for %s", url)
	}

	zap.L().Debug("rendered page",
		zap.String("url", url),
		zap.Int("bytes", len(html)),
		zap.Int("banners_dismissed", dismissed),
		zap.Bool("proxied", r.ProxyURL != ""),
		zap.Duration("elapsed", time.Since(started)),
	)
	return html, nil
}

// WithBrowser renders url with the default Renderer.
func WithBrowser(ctx context.Context, url string, timeout time.Duration) (string, error) {
	return Renderer{}.Render(ctx, url, timeout)
}
