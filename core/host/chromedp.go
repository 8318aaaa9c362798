package host

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// OpenChromedp connects to a running Chrome with chromedp. The matching
// conversation is opened in a new tab of the same browser, so it shares the
// user's login session; closing the page closes only that tab.
func OpenChromedp(ctx context.Context, p *profile.Profile, remote, preferredURL string, logger *zap.Logger) (core.Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	wsURL, err := launcher.ResolveURL(remote)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", remote, err)
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), wsURL)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	cleanup := func() {
		cancelBrowser()
		cancelAlloc()
	}

	infos, err := chromedp.Targets(browserCtx)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	t, err := PickTarget(pageTargets(infos), p, preferredURL)
	if err != nil {
		cleanup()
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(t.URL)); err != nil {
		cancelTab()
		cleanup()
		return nil, fmt.Errorf("opening %s: %w", t.URL, err)
	}
	logger.Debug("host: opened tab", zap.String("url", t.URL))

	return &livePage{
		url: t.URL,
		eval: func(ctx context.Context, fn string, args ...any) (string, error) {
			expr, err := callExpression(fn, args...)
			if err != nil {
				return "", err
			}
			runCtx, cancel := context.WithCancel(tabCtx)
			defer cancel()
			stop := context.AfterFunc(ctx, cancel)
			defer stop()

			var out string
			if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &out)); err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				return "", err
			}
			return out, nil
		},
		close: func() error {
			cancelTab()
			cleanup()
			return nil
		},
	}, nil
}

func pageTargets(infos []*target.Info) []Target {
	out := make([]Target, 0, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		out = append(out, Target{ID: string(info.TargetID), URL: info.URL, Title: info.Title})
	}
	return out
}
