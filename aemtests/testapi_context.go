package aemtests

import (
	"strings"
	"time"

	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/data"
	"github.com/adobe/aem-test-harness/framework/harness"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

type AEMTestContext struct {
	harness       *harness.TestHarness
	config        *config.Config
	contract      data.LoginContract
	runner        config.RunnerSettings
	actionTimeout time.Duration
	expectTimeout time.Duration
	assetTimeout  time.Duration
}

// authorURL resolves a path against the author instance.
func (c AEMTestContext) authorURL(path string) string {
	return strings.TrimSuffix(c.config.Author.URL, "/") + path
}

func requireContext(t *ldtest.T) AEMTestContext {
	if c, ok := t.Context().(AEMTestContext); ok {
		return c
	}
	panic("AEMTestContext was not included in the global test configuration!" +
		" This is a basic mistake in the initialization logic.")
}
