package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

type Options struct {
	Headless bool
}

// Browser drives a chrome instance through the devtools protocol. It
// is not safe for concurrent use; there is only one in-flight page
// state at a time.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	// non-nil while switched into an iframe, queries are scoped
	// to its subtree
	frame *cdp.Node
}

func New(ctx context.Context, opts Options) (*Browser, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1366, 768),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// run a no-op so a broken chrome install fails here instead of on
	// the first navigation
	err := chromedp.Run(browserCtx)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	slog.DebugContext(ctx, "started chrome", "headless", opts.Headless)

	return &Browser{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}

func (b *Browser) queryOpts(selector string) []chromedp.QueryOption {
	var opts []chromedp.QueryOption
	if strings.HasPrefix(selector, "/") {
		opts = append(opts, chromedp.BySearch)
	} else {
		opts = append(opts, chromedp.ByQuery)
	}
	if b.frame != nil {
		opts = append(opts, chromedp.FromNode(b.frame))
	}
	return opts
}

func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	// propagate cancellation from the caller's context, chromedp
	// actions must run on the browser's own context chain
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tctx, actions...)
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	err := b.run(ctx, NavigateTimeout, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (b *Browser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := b.run(ctx, timeout, chromedp.WaitVisible(selector, b.queryOpts(selector)...))
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (b *Browser) Click(ctx context.Context, selector string, timeout time.Duration) error {
	opts := b.queryOpts(selector)
	err := b.run(ctx, timeout,
		chromedp.WaitVisible(selector, opts...),
		chromedp.Click(selector, opts...),
	)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (b *Browser) Type(ctx context.Context, selector, text string) error {
	opts := b.queryOpts(selector)
	err := b.run(ctx, ActionTimeout,
		chromedp.Clear(selector, opts...),
		chromedp.SendKeys(selector, text, opts...),
	)
	if err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

func (b *Browser) Screenshot(ctx context.Context, selector, path string) error {
	var buf []byte
	err := b.run(ctx, ActionTimeout, chromedp.Screenshot(selector, &buf, b.queryOpts(selector)...))
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", selector, err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		return err
	}
	err = os.WriteFile(path, buf, 0600)
	if err != nil {
		return fmt.Errorf("write screenshot %s: %w", path, err)
	}
	return nil
}

func (b *Browser) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := b.run(ctx, ActionTimeout, chromedp.OuterHTML(selector, &html, b.queryOpts(selector)...))
	if err != nil {
		return "", fmt.Errorf("outer html of %s: %w", selector, err)
	}
	return html, nil
}

func (b *Browser) Location(ctx context.Context) (string, error) {
	var loc string
	err := b.run(ctx, ActionTimeout, chromedp.Location(&loc))
	if err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (b *Browser) SwitchFrame(ctx context.Context, selector string) error {
	var nodes []*cdp.Node
	err := b.run(ctx, ActionTimeout, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	if err != nil {
		return fmt.Errorf("locate frame %s: %w", selector, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("frame %s not found", selector)
	}
	b.frame = nodes[0]
	return nil
}

func (b *Browser) SwitchDefault(ctx context.Context) error {
	b.frame = nil
	return nil
}

var _ Driver = (*Browser)(nil)
