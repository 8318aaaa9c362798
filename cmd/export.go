// Package cmd — export command.
// This is the main command that orchestrates the pipeline:
// open page → collect → reconcile → render → write.
//
// It handles flag validation, driver and renderer selection, and result
// reporting.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/export"
	"github.com/gaurav-prasanna/chatexport/core/host"
	"github.com/gaurav-prasanna/chatexport/core/output"
	"github.com/gaurav-prasanna/chatexport/core/profile"
	"github.com/gaurav-prasanna/chatexport/core/progress"
	"github.com/gaurav-prasanna/chatexport/core/render"
)

// Flag variables.
var (
	flagProfile      string
	flagRemote       string
	flagLaunch       bool
	flagHeadless     bool
	flagUserDataDir  string
	flagURL          string
	flagDriver       string
	flagFile         string
	flagFormat       string
	flagOutputDir    string
	flagProgressJSON bool
	flagJSONResult   bool
)

// errReported marks a failure already shown to the user.
var errReported = errors.New("export failed")

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the conversation open in Chrome (or a saved page)",
	Long: `Export finds the conversation tab, scrolls through it to collect every
turn, restores the scroll position and writes the transcript.

Chrome must be running with remote debugging enabled, or use --launch to start
a browser you can log in with.

Examples:
  chatexport export
  chatexport export --url https://aistudio.google.com/prompts/abc --format pdf
  chatexport export --launch --user-data-dir ~/.chatexport --url https://gemini.google.com/app/123
  chatexport export --driver file --file saved.html --profile gemini --format json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&flagProfile, "profile", "", "Site profile (default: detected from --url or the open tabs)")

	// Host flags.
	exportCmd.Flags().StringVar(&flagDriver, "driver", "rod", "Page driver: rod, chromedp or file")
	exportCmd.Flags().StringVar(&flagRemote, "remote", "", "Chrome DevTools address (default 127.0.0.1:9222)")
	exportCmd.Flags().BoolVar(&flagLaunch, "launch", false, "Launch a new Chrome instead of attaching (rod only)")
	exportCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Run the launched Chrome headless")
	exportCmd.Flags().StringVar(&flagUserDataDir, "user-data-dir", "", "Chrome profile directory for --launch")
	exportCmd.Flags().StringVar(&flagURL, "url", "", "Conversation URL (selects the tab; opened with --launch)")
	exportCmd.Flags().StringVar(&flagFile, "file", "", "Saved HTML page (with --driver file)")

	// Output flags.
	exportCmd.Flags().StringVar(&flagFormat, "format", "html", "Output format: html, json or pdf")
	exportCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	exportCmd.Flags().BoolVar(&flagProgressJSON, "progress-json", false, "Print progress events as JSON lines on stdout")
	exportCmd.Flags().BoolVar(&flagJSONResult, "json-result", false, "Print the result as JSON on stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}

	renderer, err := selectRenderer(flagFormat)
	if err != nil {
		return err
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	candidates, err := resolveProfiles(reg)
	if err != nil {
		return err
	}

	writer, err := output.New(envDefault(flagOutputDir, envOutputDir))
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	page, p, err := openPage(ctx, candidates)
	if err != nil {
		return report(export.Failed(err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("export: closing page", zap.Error(err))
		}
	}()

	listeners := []progress.Listener{newStatusLine(os.Stderr)}
	if flagProgressJSON {
		listeners = append(listeners, progress.NewJSONLines(os.Stdout))
	}

	ex := export.New(page, p, export.Options{
		Renderer: renderer,
		Writer:   writer,
		Listener: progress.NewRouter(logger, listeners...),
		Logger:   logger,
	})
	return report(ex.Export(ctx))
}

// report prints res and turns a failure into errReported.
func report(res export.Result) error {
	if flagJSONResult {
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	} else {
		printResult(os.Stderr, res)
	}
	if !res.Success {
		return errReported
	}
	return nil
}

// resolveProfiles returns the profiles to try, most specific first.
func resolveProfiles(reg *profile.Registry) ([]*profile.Profile, error) {
	if name := envDefault(flagProfile, envProfile); name != "" {
		p, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		return []*profile.Profile{p}, nil
	}
	if flagURL != "" {
		if p, ok := reg.Detect(flagURL); ok {
			return []*profile.Profile{p}, nil
		}
		return nil, fmt.Errorf("no profile serves %s; pass --profile", flagURL)
	}
	if flagDriver == "file" {
		return nil, fmt.Errorf("--profile or --url is required with --driver file")
	}
	return reg.All(), nil
}

// openPage opens the conversation with the first candidate profile that
// finds one.
func openPage(ctx context.Context, candidates []*profile.Profile) (core.Page, *profile.Profile, error) {
	var lastErr error
	for _, p := range candidates {
		page, err := openWith(ctx, p)
		if err == nil {
			logger.Debug("export: page opened", zap.String("profile", p.Name), zap.String("url", page.URL()))
			return page, p, nil
		}
		if !errors.Is(err, host.ErrNoTarget) {
			return nil, nil, &export.TransportError{Op: "connecting to chrome", Remedy: export.RemedyDebugPort, Err: err}
		}
		lastErr = err
	}
	return nil, nil, &export.TransportError{Op: "finding the conversation", Remedy: export.RemedyReload, Err: lastErr}
}

func openWith(ctx context.Context, p *profile.Profile) (core.Page, error) {
	remote := envDefault(flagRemote, envRemote)
	switch flagDriver {
	case "file":
		snap, err := host.OpenFile(flagFile, flagURL)
		if err != nil {
			return nil, err
		}
		return snap, nil
	case "chromedp":
		return host.OpenChromedp(ctx, p, remote, flagURL, logger)
	default:
		return host.OpenRod(ctx, p, host.RodOptions{
			Remote:      remote,
			Launch:      flagLaunch,
			Headless:    flagHeadless,
			UserDataDir: flagUserDataDir,
			URL:         flagURL,
		}, logger)
	}
}

// validateFlags checks driver, format and mode combinations.
func validateFlags() error {
	switch flagDriver {
	case "rod", "chromedp", "file":
	default:
		return fmt.Errorf("unknown driver %q: use rod, chromedp or file", flagDriver)
	}

	if _, err := selectRenderer(flagFormat); err != nil {
		return err
	}

	if flagDriver == "file" && flagFile == "" {
		return fmt.Errorf("--file is required with --driver file")
	}
	if flagFile != "" && flagDriver != "file" {
		return fmt.Errorf("--file needs --driver file")
	}

	if flagLaunch {
		if flagDriver != "rod" {
			return fmt.Errorf("--launch is only supported by the rod driver")
		}
		if flagURL == "" {
			return fmt.Errorf("--url is required with --launch")
		}
		if flagRemote != "" {
			return fmt.Errorf("--launch and --remote are mutually exclusive")
		}
	}
	if !flagLaunch && (flagUserDataDir != "" || flagHeadless) {
		return fmt.Errorf("--user-data-dir and --headless need --launch")
	}

	return nil
}

// selectRenderer creates the Renderer for format.
func selectRenderer(format string) (core.Renderer, error) {
	switch format {
	case "html":
		return render.NewHTMLRenderer(), nil
	case "json":
		return render.NewJSONRenderer(), nil
	case "pdf":
		return render.NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown format %q: use html, json or pdf", format)
	}
}
