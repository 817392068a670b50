package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/adobe/aem-test-harness/framework"
)

// Videos are recorded at this size.
const (
	VideoWidth  = 1024
	VideoHeight = 768
)

// Timeouts used when SessionOptions leaves them unset.
const (
	DefaultActionTimeout = 30 * time.Second
	DefaultExpectTimeout = 5 * time.Second
)

// File names used inside a session's output directory.
const (
	TraceFileName      = "trace.zip"
	ScreenshotFileName = "failure.png"
)

// Page is the set of browser interactions that a test case can perform. Each method waits until
// its condition holds or the relevant timeout elapses, and returns an *ActionError otherwise.
type Page interface {
	Goto(url string) error
	ExpectTitle(title string) error
	Click(selector string) error
	ExpectAttribute(selector, name, value string) error
	ExpectVisible(selector string) error
	Fill(selector, value string) error
	ExpectHeading(text string) error
	// ExpectPresent only requires the element to be in the document, visible or not.
	ExpectPresent(selector string) error
	SetInputFiles(selector string, files ...File) error

	// Get and PostForm make requests outside the page, with the session's cookies. Any HTTP status
	// is a Response; only a request that gets no answer is an error.
	Get(url string) (Response, error)
	PostForm(url string, form, headers map[string]string) (Response, error)
}

// File is an in-memory file to be chosen in a file input.
type File struct {
	Name     string
	MimeType string
	Content  []byte
}

// Response is the answer to Page.Get or Page.PostForm.
type Response struct {
	Status int
	Body   []byte
}

// Session is a Page backed by its own browser context.
type Session interface {
	Page
	// Close ends the session. If failed is true a screenshot is taken first. Each file that
	// the session produced is passed to attach.
	Close(failed bool, attach func(name, path string)) error
}

// SessionOptions configures one session.
type SessionOptions struct {
	// OutputDir receives the video, trace and screenshot. It is created if necessary.
	OutputDir     string
	Trace         bool
	ActionTimeout time.Duration
	ExpectTimeout time.Duration
	// Logger receives the page's console messages.
	Logger framework.Logger
}

type playwrightSession struct {
	context playwright.BrowserContext
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
	opts    SessionOptions
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// NewSession creates a fresh browser context with no cookies or storage, and opens a page in it.
func (l *Launcher) NewSession(opts SessionOptions) (Session, error) {
	if opts.Logger == nil {
		opts.Logger = framework.NullLogger()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	if opts.ExpectTimeout <= 0 {
		opts.ExpectTimeout = DefaultExpectTimeout
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create test output directory: %w", err)
	}
	context, err := l.browser.NewContext(playwright.BrowserNewContextOptions{
		RecordVideo: &playwright.RecordVideo{
			Dir:  opts.OutputDir,
			Size: &playwright.Size{Width: VideoWidth, Height: VideoHeight},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	if opts.Trace {
		err := context.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
		})
		if err != nil {
			_ = context.Close()
			return nil, fmt.Errorf("could not start tracing: %w", err)
		}
	}
	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	page.SetDefaultTimeout(milliseconds(opts.ActionTimeout))
	page.SetDefaultNavigationTimeout(milliseconds(opts.ActionTimeout))
	logger := opts.Logger
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		logger.Printf("browser console [%s]: %s", msg.Type(), msg.Text())
	})
	return &playwrightSession{
		context: context,
		page:    page,
		expect:  playwright.NewPlaywrightAssertions(milliseconds(opts.ExpectTimeout)),
		opts:    opts,
	}, nil
}

func (s *playwrightSession) Goto(url string) error {
	s.opts.Logger.Printf("navigating to %s", url)
	_, err := s.page.Goto(url)
	return actionError("navigate to "+url, KindConnectivity, err)
}

func (s *playwrightSession) ExpectTitle(title string) error {
	err := s.expect.Page(s.page).ToHaveTitle(title)
	return actionError(fmt.Sprintf("expect title %q", title), KindAssertion, err)
}

func (s *playwrightSession) Click(selector string) error {
	s.opts.Logger.Printf("clicking %s", selector)
	err := s.page.Locator(selector).Click()
	return actionError("click "+selector, locatorErrorKind(err), err)
}

func (s *playwrightSession) ExpectAttribute(selector, name, value string) error {
	err := s.expect.Locator(s.page.Locator(selector)).ToHaveAttribute(name, value)
	return actionError(fmt.Sprintf("expect %s to have %s=%q", selector, name, value), KindAssertion, err)
}

func (s *playwrightSession) ExpectVisible(selector string) error {
	err := s.expect.Locator(s.page.Locator(selector)).ToBeVisible()
	return actionError(fmt.Sprintf("expect %s to be visible", selector), KindAssertion, err)
}

// Fill never logs the value, since it is usually a credential.
func (s *playwrightSession) Fill(selector, value string) error {
	s.opts.Logger.Printf("filling %s", selector)
	err := s.page.Locator(selector).Fill(value)
	return actionError("fill "+selector, locatorErrorKind(err), err)
}

func (s *playwrightSession) ExpectHeading(text string) error {
	err := s.expect.Locator(s.page.GetByRole(*playwright.AriaRoleHeading)).ToHaveText(text)
	return actionError(fmt.Sprintf("expect heading %q", text), KindAssertion, err)
}

func (s *playwrightSession) ExpectPresent(selector string) error {
	err := s.expect.Locator(s.page.Locator(selector)).ToBeAttached()
	return actionError(fmt.Sprintf("expect %s to be present", selector), KindAssertion, err)
}

func (s *playwrightSession) SetInputFiles(selector string, files ...File) error {
	inputs := make([]playwright.InputFile, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, playwright.InputFile{Name: f.Name, MimeType: f.MimeType, Buffer: f.Content})
	}
	s.opts.Logger.Printf("choosing %d file(s) in %s", len(files), selector)
	err := s.page.Locator(selector).SetInputFiles(inputs)
	return actionError("choose files in "+selector, locatorErrorKind(err), err)
}

func (s *playwrightSession) Get(url string) (Response, error) {
	resp, err := s.page.Request().Get(url)
	return s.readResponse("GET "+url, resp, err)
}

func (s *playwrightSession) PostForm(url string, form, headers map[string]string) (Response, error) {
	values := make(map[string]interface{}, len(form))
	for k, v := range form {
		values[k] = v
	}
	resp, err := s.page.Request().Post(url, playwright.APIRequestContextPostOptions{
		Form:    values,
		Headers: headers,
	})
	return s.readResponse("POST "+url, resp, err)
}

func (s *playwrightSession) readResponse(action string, resp playwright.APIResponse, err error) (Response, error) {
	if err != nil {
		return Response{}, actionError(action, KindConnectivity, err)
	}
	defer func() { _ = resp.Dispose() }()
	body, err := resp.Body()
	if err != nil {
		return Response{}, actionError(action, KindConnectivity, err)
	}
	s.opts.Logger.Printf("%s: HTTP %d", action, resp.Status())
	return Response{Status: resp.Status(), Body: body}, nil
}

func (s *playwrightSession) Close(failed bool, attach func(name, path string)) error {
	var errs []error
	if failed {
		path := filepath.Join(s.opts.OutputDir, ScreenshotFileName)
		if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(true),
		}); err != nil {
			errs = append(errs, fmt.Errorf("screenshot: %w", err))
		} else {
			attach("screenshot", path)
		}
	}
	if s.opts.Trace {
		path := filepath.Join(s.opts.OutputDir, TraceFileName)
		if err := s.context.Tracing().Stop(path); err != nil {
			errs = append(errs, fmt.Errorf("trace: %w", err))
		} else {
			attach("trace", path)
		}
	}
	video := s.page.Video()
	// the video file is complete only once the context is closed
	if err := s.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser context: %w", err))
	}
	if video != nil {
		if path, err := video.Path(); err == nil {
			attach("video", path)
		}
	}
	return errors.Join(errs...)
}
