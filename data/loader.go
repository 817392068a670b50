package data

import (
	"embed"
	"fmt"
	"os"
	"strings"
)

//go:embed data-files
var dataFilesRoot embed.FS

const dataBasePath = "data-files"

const (
	loginContractFile = "login-contract.yaml"
	uploadImageFile   = "image.png"
)

// LoginContract describes what the target's sign-in flow is expected to look like: the page
// titles, the selectors of the elements a user interacts with, and where the form posts to.
// It also describes the Assets console that the upload test drives after signing in.
type LoginContract struct {
	SignInPage  SignInPage    `json:"signInPage"`
	LandingPage LandingPage   `json:"landingPage"`
	LogoutPath  string        `json:"logoutPath"`
	Assets      AssetsConsole `json:"assets"`
}

type SignInPage struct {
	Path           string    `json:"path"`
	Title          string    `json:"title"`
	RevealSelector string    `json:"revealSelector"`
	Form           LoginForm `json:"form"`
}

type LoginForm struct {
	Selector         string `json:"selector"`
	Action           string `json:"action"`
	UsernameSelector string `json:"usernameSelector"`
	PasswordSelector string `json:"passwordSelector"`
	SubmitSelector   string `json:"submitSelector"`
}

type LandingPage struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Heading string `json:"heading"`

	// ShellSelectors must all match an element of the start page once the user is signed in.
	ShellSelectors []string `json:"shellSelectors"`
}

type AssetsConsole struct {
	ConsolePath           string `json:"consolePath"`
	Title                 string `json:"title"`
	Folder                string `json:"folder"`
	UploadInputSelector   string `json:"uploadInputSelector"`
	UploadConfirmSelector string `json:"uploadConfirmSelector"`
	CSRFTokenPath         string `json:"csrfTokenPath"`
	CommandPath           string `json:"commandPath"`
}

// AssetPath is the repository path of an asset called name in the console's folder.
func (a AssetsConsole) AssetPath(name string) string {
	return strings.TrimSuffix(a.Folder, "/") + "/" + name
}

// Validate returns an error naming every field that is empty.
func (c LoginContract) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"signInPage.path", c.SignInPage.Path},
		{"signInPage.title", c.SignInPage.Title},
		{"signInPage.revealSelector", c.SignInPage.RevealSelector},
		{"signInPage.form.selector", c.SignInPage.Form.Selector},
		{"signInPage.form.action", c.SignInPage.Form.Action},
		{"signInPage.form.usernameSelector", c.SignInPage.Form.UsernameSelector},
		{"signInPage.form.passwordSelector", c.SignInPage.Form.PasswordSelector},
		{"signInPage.form.submitSelector", c.SignInPage.Form.SubmitSelector},
		{"landingPage.path", c.LandingPage.Path},
		{"landingPage.title", c.LandingPage.Title},
		{"landingPage.heading", c.LandingPage.Heading},
		{"logoutPath", c.LogoutPath},
		{"assets.consolePath", c.Assets.ConsolePath},
		{"assets.title", c.Assets.Title},
		{"assets.folder", c.Assets.Folder},
		{"assets.uploadInputSelector", c.Assets.UploadInputSelector},
		{"assets.uploadConfirmSelector", c.Assets.UploadConfirmSelector},
		{"assets.csrfTokenPath", c.Assets.CSRFTokenPath},
		{"assets.commandPath", c.Assets.CommandPath},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	for _, selector := range c.LandingPage.ShellSelectors {
		if selector == "" {
			missing = append(missing, "landingPage.shellSelectors[]")
			break
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("login contract is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadLoginContract returns the built-in contract for a stock AEM author instance.
func LoadLoginContract() (LoginContract, error) {
	data, err := dataFilesRoot.ReadFile(dataBasePath + "/" + loginContractFile)
	if err != nil {
		return LoginContract{}, fmt.Errorf("failed to read %q: %w", loginContractFile, err)
	}
	var c LoginContract
	if err := ParseJSONOrYAML(data, &c); err != nil {
		return LoginContract{}, fmt.Errorf("error parsing %q: %w", loginContractFile, err)
	}
	return c, c.Validate()
}

// LoadLoginContractOverride reads a JSON or YAML file and applies it on top of the built-in
// contract, so the file only needs to contain the values that differ.
func LoadLoginContractOverride(path string) (LoginContract, error) {
	c, err := LoadLoginContract()
	if err != nil {
		return LoginContract{}, err
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return LoginContract{}, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if err := ParseJSONOrYAML(data, &c); err != nil {
		return LoginContract{}, fmt.Errorf("error parsing %q: %w", path, err)
	}
	return c, c.Validate()
}

// UploadImage is the file the upload test puts into the Assets console.
type UploadImage struct {
	Name     string
	MimeType string
	Content  []byte
}

// LoadUploadImage returns the built-in image used by the upload test.
func LoadUploadImage() (UploadImage, error) {
	content, err := dataFilesRoot.ReadFile(dataBasePath + "/" + uploadImageFile)
	if err != nil {
		return UploadImage{}, fmt.Errorf("failed to read %q: %w", uploadImageFile, err)
	}
	return UploadImage{Name: uploadImageFile, MimeType: "image/png", Content: content}, nil
}
