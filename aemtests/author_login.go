package aemtests

import (
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

func openSignInPageSteps(c AEMTestContext) []step {
	return []step{
		{
			name: "open sign-in page",
			run:  func(p browser.Page) error { return p.Goto(c.config.Author.URL) },
		},
		{
			name: "check sign-in page title",
			run:  func(p browser.Page) error { return p.ExpectTitle(c.contract.SignInPage.Title) },
		},
	}
}

func revealLoginFormStep(c AEMTestContext) step {
	page := c.contract.SignInPage
	return step{
		name:   "reveal login form",
		markup: true,
		run: func(p browser.Page) error {
			if err := p.Click(page.RevealSelector); err != nil {
				return err
			}
			return p.ExpectAttribute(page.Form.Selector, "action", page.Form.Action)
		},
	}
}

// loginSteps is the whole sign-in flow, from opening the sign-in page to arriving on the start page.
func loginSteps(c AEMTestContext) []step {
	form := c.contract.SignInPage.Form
	landing := c.contract.LandingPage
	return append(openSignInPageSteps(c),
		revealLoginFormStep(c),
		step{
			name:   "enter credentials",
			markup: true,
			run: func(p browser.Page) error {
				if err := p.Fill(form.UsernameSelector, c.config.Author.Username); err != nil {
					return err
				}
				return p.Fill(form.PasswordSelector, c.config.Author.Password)
			},
		},
		step{
			name:   "submit login form",
			markup: true,
			run:    func(p browser.Page) error { return p.Click(form.SubmitSelector) },
		},
		step{
			name: "check start page",
			run: func(p browser.Page) error {
				if err := p.ExpectTitle(landing.Title); err != nil {
					return err
				}
				return p.ExpectHeading(landing.Heading)
			},
		},
	)
}

func startPageShellStep(c AEMTestContext) step {
	return step{
		name:   "check start page shell",
		markup: true,
		run: func(p browser.Page) error {
			for _, selector := range c.contract.LandingPage.ShellSelectors {
				if err := p.ExpectPresent(selector); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func doSignInPageTitleTest(t *ldtest.T) {
	c := requireContext(t)
	runSteps(t, newPage(t), openSignInPageSteps(c))
}

func doLoginFormTest(t *ldtest.T) {
	c := requireContext(t)
	form := c.contract.SignInPage.Form
	runSteps(t, newPage(t), append(openSignInPageSteps(c),
		revealLoginFormStep(c),
		step{
			name:   "check login form fields",
			markup: true,
			run: func(p browser.Page) error {
				for _, selector := range []string{form.UsernameSelector, form.PasswordSelector, form.SubmitSelector} {
					if err := p.ExpectVisible(selector); err != nil {
						return err
					}
				}
				return nil
			},
		},
	))
}

func doLoginTest(t *ldtest.T) {
	c := requireContext(t)
	runSteps(t, newPage(t), loginSteps(c))
}

func doStartPageShellTest(t *ldtest.T) {
	c := requireContext(t)
	runSteps(t, newPage(t), append(loginSteps(c), startPageShellStep(c)))
}
