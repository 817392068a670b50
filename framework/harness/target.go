package harness

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adobe/aem-test-harness/framework/helpers"
	"github.com/adobe/aem-test-harness/framework/ldtest"
	"github.com/adobe/aem-test-harness/framework/opt"
)

const (
	targetRetryInterval = time.Millisecond * 500

	// minTargetTimeout also bounds each request; a zero http.Client timeout would never expire.
	minTargetTimeout = targetRetryInterval
)

// TargetInfo is what the harness learned about the target before running any tests.
type TargetInfo struct {
	URL        string
	Reachable  bool
	StatusCode int
	// FinalURL is where the target's redirects, if any, ended up.
	FinalURL string
	Proxy    opt.Maybe[string]
	Error    string
	Elapsed  time.Duration
}

// Properties returns the reachability check result as name/value pairs for reports.
func (i TargetInfo) Properties() []ldtest.ReportProperty {
	ret := []ldtest.ReportProperty{
		{Name: "target.url", Value: i.URL},
		{Name: "target.reachable", Value: strconv.FormatBool(i.Reachable)},
		{Name: "target.proxy", Value: helpers.RedactProxy(i.Proxy)},
	}
	if i.Reachable {
		ret = append(ret,
			ldtest.ReportProperty{Name: "target.status", Value: strconv.Itoa(i.StatusCode)},
			ldtest.ReportProperty{Name: "target.finalURL", Value: i.FinalURL},
		)
	} else {
		ret = append(ret, ldtest.ReportProperty{Name: "target.error", Value: i.Error})
	}
	return ret
}

func newTargetClient(proxy opt.Maybe[string], timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if proxy.IsDefined() {
		proxyURL, err := url.Parse(proxy.Value())
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q", helpers.RedactURL(proxy.Value()))
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// queryTargetInfo requests the target URL until it gets any HTTP response or the timeout elapses.
// Any status code counts as reachable; judging the content is left to the tests. Timeouts below
// minTargetTimeout, including zero, are raised to it.
func queryTargetInfo(targetURL string, proxy opt.Maybe[string], timeout time.Duration, output io.Writer) TargetInfo {
	info := TargetInfo{URL: targetURL, Proxy: proxy}
	start := time.Now()
	timeout = max(timeout, minTargetTimeout)

	client, err := newTargetClient(proxy, timeout)
	if err != nil {
		info.Error = err.Error()
		return info
	}

	_, _ = fmt.Fprintf(output, "Connecting to target at %s", targetURL)
	deadline := start.Add(timeout)
	for {
		_, _ = fmt.Fprint(output, ".")
		resp, err := client.Get(targetURL)
		if err == nil {
			_ = resp.Body.Close()
			_, _ = fmt.Fprintln(output)
			_, _ = fmt.Fprintf(output, "Target answered with %s\n", describeResponse(resp))
			info.Reachable = true
			info.StatusCode = resp.StatusCode
			info.FinalURL = resp.Request.URL.String()
			info.Elapsed = time.Since(start)
			return info
		}
		if !time.Now().Add(targetRetryInterval).Before(deadline) {
			_, _ = fmt.Fprintln(output)
			_, _ = fmt.Fprintf(output, "Target is not reachable: %s\n", err)
			info.Error = err.Error()
			info.Elapsed = time.Since(start)
			return info
		}
		time.Sleep(targetRetryInterval)
	}
}
