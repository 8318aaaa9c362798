package host

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// RodOptions configures the go-rod driver.
type RodOptions struct {
	// Remote is the DevTools address of a running Chrome, e.g.
	// "127.0.0.1:9222" or a ws:// URL. Empty means the default port.
	Remote string
	// Launch starts a new Chrome instead of connecting to one.
	Launch      bool
	Headless    bool
	UserDataDir string
	// URL selects the tab to export; in launch mode it is opened.
	URL string
}

// OpenRod connects to Chrome with go-rod and returns the conversation tab.
func OpenRod(ctx context.Context, p *profile.Profile, opts RodOptions, logger *zap.Logger) (core.Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var controlURL string
	var err error
	if opts.Launch {
		l := launcher.New().Context(ctx).Headless(opts.Headless)
		if opts.UserDataDir != "" {
			l = l.UserDataDir(opts.UserDataDir)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")
		controlURL, err = l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching chrome: %w", err)
		}
		logger.Info("host: launched chrome", zap.String("control_url", controlURL))
	} else {
		controlURL, err = launcher.ResolveURL(opts.Remote)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", opts.Remote, err)
		}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	if opts.Launch {
		page, err := openStealthPage(ctx, browser, opts.URL)
		if err != nil {
			_ = browser.Close()
			return nil, err
		}
		return rodPage(page, opts.URL, browser.Close), nil
	}

	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	targets := make([]Target, 0, len(pages))
	byID := make(map[string]*rod.Page, len(pages))
	for _, pg := range pages {
		info, err := pg.Info()
		if err != nil {
			logger.Debug("host: skipping tab", zap.Error(err))
			continue
		}
		id := string(info.TargetID)
		targets = append(targets, Target{ID: id, URL: info.URL, Title: info.Title})
		byID[id] = pg
	}

	t, err := PickTarget(targets, p, opts.URL)
	if err != nil {
		return nil, err
	}
	logger.Debug("host: attached to tab", zap.String("url", t.URL), zap.String("title", t.Title))

	// The tab belongs to the user: detach without closing it.
	return rodPage(byID[t.ID], t.URL, func() error { return nil }), nil
}

func openStealthPage(ctx context.Context, browser *rod.Browser, pageURL string) (*rod.Page, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("launch mode needs a conversation URL")
	}
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	if err := page.Context(ctx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", pageURL, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", pageURL, err)
	}
	return page, nil
}

func rodPage(page *rod.Page, pageURL string, closeFn func() error) *livePage {
	return &livePage{
		url: pageURL,
		eval: func(ctx context.Context, fn string, args ...any) (string, error) {
			res, err := page.Context(ctx).Eval(fn, args...)
			if err != nil {
				return "", err
			}
			return res.Value.Str(), nil
		},
		close: closeFn,
	}
}
