package aemtests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adobe/aem-test-harness/data"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/helpers"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

// DefaultAssetTimeout is how long the upload test waits for an asset to appear, and then to
// disappear again.
const DefaultAssetTimeout = 10 * time.Second

const assetPollInterval = 250 * time.Millisecond

// assetUploadSteps signs in, uploads image through the Assets console, and deletes it again.
func assetUploadSteps(t *ldtest.T, c AEMTestContext, image data.UploadImage) []step {
	assets := c.contract.Assets
	assetPath := assets.AssetPath(image.Name)
	assetURL := c.authorURL(assetPath + ".json")
	return append(loginSteps(c),
		step{
			name: "open assets console",
			run: func(p browser.Page) error {
				if err := p.Goto(c.authorURL(assets.ConsolePath)); err != nil {
					return err
				}
				return p.ExpectTitle(assets.Title)
			},
		},
		step{
			name:   "upload asset",
			markup: true,
			run: func(p browser.Page) error {
				file := browser.File{Name: image.Name, MimeType: image.MimeType, Content: image.Content}
				if err := p.SetInputFiles(assets.UploadInputSelector, file); err != nil {
					return err
				}
				t.Defer(func() { removeLeftoverAsset(t, p, c, assetPath) })
				return p.Click(assets.UploadConfirmSelector)
			},
		},
		step{
			name: "wait for uploaded asset",
			run:  func(p browser.Page) error { return waitForStatus(p, assetURL, http.StatusOK, c.assetTimeout) },
		},
		step{
			name: "delete asset",
			run:  func(p browser.Page) error { return deleteAsset(p, c, assetPath) },
		},
		step{
			name: "wait for asset deletion",
			run:  func(p browser.Page) error { return waitForStatus(p, assetURL, http.StatusNotFound, c.assetTimeout) },
		},
	)
}

func doAssetUploadTest(t *ldtest.T) {
	c := requireContext(t)
	image, err := data.LoadUploadImage()
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
	runSteps(t, newPage(t), assetUploadSteps(t, c, image))
}

// waitForStatus requests url until it answers with the wanted status.
func waitForStatus(p browser.Page, url string, want int, timeout time.Duration) error {
	var (
		last    int
		lastErr error
	)
	ok := helpers.PollForSpecificResultValue(func() bool {
		resp, err := p.Get(url)
		last, lastErr = resp.Status, err
		return err == nil && resp.Status == want
	}, timeout, assetPollInterval, true)
	switch {
	case ok:
		return nil
	case lastErr != nil:
		return lastErr
	default:
		return &browser.ActionError{
			Action: fmt.Sprintf("wait for HTTP %d from %s", want, url),
			Kind:   browser.KindTimeout,
			Err:    fmt.Errorf("still HTTP %d after %s", last, timeout),
		}
	}
}

// deleteAsset removes an asset through the WCM command servlet, as the console's delete action
// does. The servlet only accepts posts that carry a CSRF token.
func deleteAsset(p browser.Page, c AEMTestContext, assetPath string) error {
	assets := c.contract.Assets
	resp, err := p.Get(c.authorURL(assets.CSRFTokenPath))
	if err != nil {
		return err
	}
	var token struct {
		Token string `json:"token"`
	}
	if resp.Status != http.StatusOK || json.Unmarshal(resp.Body, &token) != nil || token.Token == "" {
		return &browser.ActionError{
			Action: "get CSRF token",
			Kind:   browser.KindAssertion,
			Err:    fmt.Errorf("HTTP %d without a token", resp.Status),
		}
	}
	resp, err = p.PostForm(c.authorURL(assets.CommandPath), map[string]string{
		"_charset_": "utf-8",
		"cmd":       "deletePage",
		"path":      assetPath,
		"force":     "true",
		"shallow":   "false",
	}, map[string]string{"CSRF-Token": token.Token})
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return &browser.ActionError{
			Action: "delete " + assetPath,
			Kind:   browser.KindAssertion,
			Err:    fmt.Errorf("HTTP %d", resp.Status),
		}
	}
	return nil
}

// removeLeftoverAsset deletes the uploaded asset if the test failed before deleting it itself,
// so that the next attempt starts from an empty folder.
func removeLeftoverAsset(t *ldtest.T, p browser.Page, c AEMTestContext, assetPath string) {
	if !t.Failed() {
		return
	}
	resp, err := p.Get(c.authorURL(assetPath + ".json"))
	if err != nil || resp.Status == http.StatusNotFound {
		return
	}
	if err := deleteAsset(p, c, assetPath); err != nil {
		t.Debug("could not remove leftover asset %s: %s", assetPath, err)
	}
}
