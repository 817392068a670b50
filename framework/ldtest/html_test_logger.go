package ldtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/adobe/aem-test-harness/framework"
)

const htmlPageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
pre { background: #f6f6f6; padding: 8px; overflow-x: auto; }
</style>
</head>
<body>
%s
</body>
</html>
`

// HTMLTestLogger writes a human-readable report into a directory when EndLog is called. The
// report is built as Markdown (report.md) and rendered to index.html. Artifact links are made
// relative to the report directory.
type HTMLTestLogger struct {
	dir        string
	title      string
	properties []ReportProperty
	startTime  time.Time
	entries    []htmlTestEntry
	skipped    map[string]string
	lock       sync.Mutex
}

type htmlTestEntry struct {
	id       TestID
	result   TestResult
	output   framework.CapturedOutput
	duration time.Duration
	started  time.Time
}

func NewHTMLTestLogger(dir, title string, properties []ReportProperty) *HTMLTestLogger {
	return &HTMLTestLogger{
		dir:        dir,
		title:      title,
		properties: properties,
		startTime:  time.Now(),
		skipped:    make(map[string]string),
	}
}

func (l *HTMLTestLogger) TestStarted(id TestID) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.entries = append(l.entries, htmlTestEntry{id: id, started: time.Now()})
}

func (l *HTMLTestLogger) TestError(TestID, error) {}

func (l *HTMLTestLogger) TestRetrying(TestID, int) {}

func (l *HTMLTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if e := l.find(id); e != nil {
		e.result = result
		e.output = debugOutput
		e.duration = time.Since(e.started)
	}
}

func (l *HTMLTestLogger) TestSkipped(id TestID, reason string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.skipped[id.String()] = reason
}

func (l *HTMLTestLogger) find(id TestID) *htmlTestEntry {
	for i := range l.entries {
		if l.entries[i].id.String() == id.String() {
			return &l.entries[i]
		}
	}
	return nil
}

// EndLog writes report.md and index.html into the report directory, creating it if necessary.
func (l *HTMLTestLogger) EndLog(results Results) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("cannot create HTML report directory: %w", err)
	}

	var md bytes.Buffer
	if err := l.writeMarkdown(&md, results); err != nil {
		return fmt.Errorf("cannot build report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, "report.md"), md.Bytes(), 0644); err != nil { //nolint:gosec
		return err
	}

	var body bytes.Buffer
	renderer := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	if err := renderer.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("cannot render report: %w", err)
	}
	page := fmt.Sprintf(htmlPageTemplate, l.title, body.String())
	return os.WriteFile(filepath.Join(l.dir, "index.html"), []byte(page), 0644) //nolint:gosec
}

func (l *HTMLTestLogger) writeMarkdown(w *bytes.Buffer, results Results) error {
	md := markdown.NewMarkdown(w)

	md.H1(l.title)
	md.PlainText("")

	rows := [][]string{
		{"Started", l.startTime.Format(time.RFC3339)},
		{"Duration", time.Since(l.startTime).Round(time.Millisecond).String()},
	}
	for _, p := range l.properties {
		rows = append(rows, []string{p.Name, markdownCell(p.Value)})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	switch {
	case !results.OK():
		md.Cautionf("%d test(s) failed.", len(results.Failures))
	case len(results.NonCriticalFailures) != 0:
		md.Note(fmt.Sprintf("All critical tests passed; %d non-critical failure(s).", len(results.NonCriticalFailures)))
	default:
		md.Tip("All tests passed.")
	}
	md.PlainText("")

	md.H2("Tests")
	md.PlainText("")
	testRows := make([][]string, 0, len(l.entries))
	for _, e := range l.entries {
		testRows = append(testRows, []string{
			markdownCell(e.id.String()),
			l.status(e),
			strconv.Itoa(max(e.result.Attempts, 1)),
			e.duration.Round(time.Millisecond).String(),
		})
	}
	md.Table(markdown.TableSet{Header: []string{"Test", "Status", "Attempts", "Duration"}, Rows: testRows})
	md.PlainText("")

	for _, e := range l.entries {
		if len(e.result.Errors) == 0 && len(e.result.Artifacts) == 0 {
			continue
		}
		md.H3(e.id.String())
		md.PlainText("")
		for _, err := range e.result.Errors {
			md.PlainText(markdownCodeBlock(err.Error()))
			md.PlainText("")
		}
		if len(e.result.Artifacts) != 0 {
			links := make([]string, 0, len(e.result.Artifacts))
			for _, a := range e.result.Artifacts {
				links = append(links, markdown.Link(a.Name, l.relativePath(a.Path)))
			}
			md.BulletList(links...)
			md.PlainText("")
		}
		if len(e.output) != 0 && len(e.result.Errors) != 0 {
			md.Details("Debug output", "\n"+markdownCodeBlock(e.output.ToString(""))+"\n")
			md.PlainText("")
		}
	}

	md.HorizontalRule()
	md.PlainTextf("*%d tests, %d failed, %d flaky*", len(l.entries), len(results.Failures), len(results.Flaky()))
	return md.Build()
}

func (l *HTMLTestLogger) status(e htmlTestEntry) string {
	if reason, ok := l.skipped[e.id.String()]; ok {
		if reason == "" {
			return "skipped"
		}
		return "skipped (" + markdownCell(reason) + ")"
	}
	switch {
	case len(e.result.Errors) != 0 && e.result.NonCritical:
		return "**failed (non-critical)**"
	case len(e.result.Errors) != 0:
		return "**failed**"
	case e.result.Attempts > 1:
		return "flaky"
	default:
		return "passed"
	}
}

func (l *HTMLTestLogger) relativePath(path string) string {
	if rel, err := filepath.Rel(l.dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func markdownCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func markdownCodeBlock(s string) string {
	return "```\n" + s + "\n```"
}
