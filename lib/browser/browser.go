package browser

import (
	"context"
	"time"
)

// Driver is the set of page interactions the scrapers need. The
// concrete implementation lives in this package; scrapers and tests
// consume the interface.
//
// Selectors starting with "/" are interpreted as XPath expressions,
// anything else as a CSS selector.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Type(ctx context.Context, selector, text string) error
	Screenshot(ctx context.Context, selector, path string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	Location(ctx context.Context) (string, error)
	SwitchFrame(ctx context.Context, selector string) error
	SwitchDefault(ctx context.Context) error
}

const (
	// page loads on the portal either happen quickly or hang forever
	NavigateTimeout = 5 * time.Second
	// element reads/writes on an already-loaded page
	ActionTimeout = 10 * time.Second
)
