package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// BrowserRunner opens the HyperExecute job dashboard for evidence capture
type BrowserRunner struct {
	config        *BrowserConfig
	projectRoot   string
	ctx           context.Context
	cancel        context.CancelFunc
	consoleErrors []string
}

// JobEvidence contains the result of one job-page capture
type JobEvidence struct {
	URL           string
	Screenshot    string
	ConsoleErrors []string
	Elapsed       time.Duration
	Error         error
}

// NewBrowserRunner creates a new browser runner
func NewBrowserRunner(projectRoot string, config *BrowserConfig) *BrowserRunner {
	return &BrowserRunner{
		config:      config,
		projectRoot: projectRoot,
	}
}

// CaptureJobEvidence navigates to the job link and saves a full-page
// screenshot. Returns nil when the browser is disabled in config.
func (br *BrowserRunner) CaptureJobEvidence(jobLink, runID string) (*JobEvidence, error) {
	if br.config == nil || !br.config.Enabled {
		return nil, nil
	}
	if jobLink == "" {
		return nil, fmt.Errorf("no job link to capture")
	}

	if err := br.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer br.close()

	start := time.Now()
	evidence := &JobEvidence{URL: jobLink}

	ctx, cancel := context.WithTimeout(br.ctx, 30*time.Second)
	defer cancel()

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(jobLink),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second), // Dashboard renders job status async
		chromedp.FullScreenshot(&buf, 90),
	)

	evidence.Elapsed = time.Since(start)
	evidence.ConsoleErrors = br.consoleErrors

	if err != nil {
		evidence.Error = err
		return evidence, nil
	}

	if len(buf) > 0 {
		evidence.Screenshot = br.saveScreenshot(runID, jobLink, buf)
	}

	return evidence, nil
}

// init initializes the browser context
func (br *BrowserRunner) init() error {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
	}

	if br.config.Headless {
		opts = append(opts, chromedp.Headless)
	}

	if br.config.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(br.config.ExecutablePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	br.ctx = ctx
	br.cancel = func() {
		cancel()
		allocCancel()
	}

	// Listen for console errors
	br.consoleErrors = nil
	chromedp.ListenTarget(br.ctx, func(ev interface{}) {
		if ev, ok := ev.(*runtime.EventExceptionThrown); ok {
			br.consoleErrors = append(br.consoleErrors, ev.ExceptionDetails.Text)
		}
	})

	return nil
}

// close closes the browser
func (br *BrowserRunner) close() {
	if br.cancel != nil {
		br.cancel()
	}
}

// saveScreenshot saves a screenshot to the screenshots directory
func (br *BrowserRunner) saveScreenshot(runID, identifier string, data []byte) string {
	screenshotDir := br.config.ScreenshotDir
	if screenshotDir == "" {
		screenshotDir = ".wells/screenshots"
	}

	if !filepath.IsAbs(screenshotDir) {
		screenshotDir = filepath.Join(br.projectRoot, screenshotDir)
	}

	if err := os.MkdirAll(screenshotDir, 0755); err != nil {
		fmt.Printf("Warning: failed to create screenshot dir: %v\n", err)
		return ""
	}

	idSafe := strings.ReplaceAll(identifier, "/", "_")
	idSafe = strings.ReplaceAll(idSafe, ":", "_")
	idSafe = strings.ReplaceAll(idSafe, "?", "_")
	if len(idSafe) > 50 {
		idSafe = idSafe[:50]
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("job-%s-%s-%s.png", runID, timestamp, idSafe)
	screenshotPath := filepath.Join(screenshotDir, filename)

	if err := os.WriteFile(screenshotPath, data, 0644); err != nil {
		fmt.Printf("Warning: failed to save screenshot: %v\n", err)
		return ""
	}

	return screenshotPath
}

// FormatJobEvidence formats a capture result for display
func FormatJobEvidence(evidence *JobEvidence) string {
	if evidence == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  Job page: %s\n", evidence.URL))
	if evidence.Error != nil {
		sb.WriteString(fmt.Sprintf("    Error: %v\n", evidence.Error))
	} else {
		sb.WriteString(fmt.Sprintf("    Loaded in %v\n", evidence.Elapsed.Round(time.Millisecond)))
	}
	if evidence.Screenshot != "" {
		sb.WriteString(fmt.Sprintf("    Screenshot: %s\n", evidence.Screenshot))
	}
	if len(evidence.ConsoleErrors) > 0 {
		sb.WriteString(fmt.Sprintf("    Console errors: %d\n", len(evidence.ConsoleErrors)))
		for _, err := range evidence.ConsoleErrors {
			sb.WriteString(fmt.Sprintf("      - %s\n", err))
		}
	}
	return sb.String()
}
