package browser

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Kind says what sort of problem made a browser action fail.
type Kind string

const (
	// KindConnectivity means the target could not be reached, or the browser lost it.
	KindConnectivity Kind = "connectivity"
	// KindAssertion means the page was reached but did not show the expected state.
	KindAssertion Kind = "assertion"
	// KindMarkupContract means an element the test relies on is missing or has changed.
	KindMarkupContract Kind = "markup-contract"
	// KindTimeout means an action did not complete in time for no more specific reason.
	KindTimeout Kind = "timeout"
)

// ActionError is returned by every Page method.
type ActionError struct {
	Action string
	Kind   Kind
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Action, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first ActionError in err's chain, or KindConnectivity if there
// is none; an error that never reached the page is treated as not reaching the target.
func KindOf(err error) Kind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindConnectivity
}

// IsTimeout reports whether err came from a browser wait that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout)
}

func actionError(action string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ActionError{Action: action, Kind: kind, Err: err}
}

// locatorErrorKind classifies a failed click or fill. Waiting in vain for an element is a timeout;
// anything else, such as a selector matching several elements, means the markup changed.
func locatorErrorKind(err error) Kind {
	if IsTimeout(err) {
		return KindTimeout
	}
	return KindMarkupContract
}
