package aemtests

import (
	"fmt"

	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

// StepError is how a test reports the step that failed. Step is numbered from 1; it is 0 if the
// test could not get as far as its first step.
type StepError struct {
	Step int
	Name string
	Kind browser.Kind
	Err  error
}

func (e *StepError) Error() string {
	if e.Step == 0 {
		return fmt.Sprintf("%s [%s]: %s", e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("step %d (%s) [%s]: %s", e.Step, e.Name, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type step struct {
	name string
	// markup is set for steps that only depend on the page's markup; a failed wait or assertion
	// in them means the markup no longer matches the login contract.
	markup bool
	run    func(browser.Page) error
}

func (s step) classify(err error) browser.Kind {
	kind := browser.KindOf(err)
	if s.markup && kind != browser.KindConnectivity {
		return browser.KindMarkupContract
	}
	return kind
}

// runSteps runs the steps in order and stops the test at the first one that fails.
func runSteps(t *ldtest.T, page browser.Page, steps []step) {
	t.Helper()
	for i, s := range steps {
		t.Debug("step %d: %s", i+1, s.name)
		if err := s.run(page); err != nil {
			t.Error(&StepError{Step: i + 1, Name: s.name, Kind: s.classify(err), Err: err})
			t.FailNow()
		}
	}
}
