// Package mockaem is a stand-in for an AEM author instance that implements just its login flow
// and enough of the Assets console to upload and delete a file. It is used by the harness's own
// tests and by the serve-mock command, so that the acceptance tests can be tried out without a
// real instance.
package mockaem

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/adobe/aem-test-harness/data"
	"github.com/adobe/aem-test-harness/framework"
)

// LoginTokenCookie is the name of the session cookie, as on a real instance.
const LoginTokenCookie = "login-token"

// Credentials are the only user name and password the service accepts.
type Credentials struct {
	Username string
	Password string
}

// Service is an http.Handler serving the sign-in page, the login form target, the start page
// and the logout endpoint described by a data.LoginContract. The selectors in the sign-in part of
// the contract must be id selectors ("#name") for the pages to match them; the Assets console
// always has the stock markup.
type Service struct {
	contract    data.LoginContract
	credentials Credentials
	sessions    map[string]string // login token -> user name
	csrfTokens  map[string]bool
	assets      map[string]int64 // repository path -> size
	handler     http.Handler
	debugLogger framework.Logger
	lock        sync.Mutex
}

func NewService(
	contract data.LoginContract,
	credentials Credentials,
	debugLogger framework.Logger,
) *Service {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	s := &Service{
		contract:    contract,
		credentials: credentials,
		sessions:    make(map[string]string),
		csrfTokens:  make(map[string]bool),
		assets:      make(map[string]int64),
		debugLogger: debugLogger,
	}

	router := mux.NewRouter()
	router.HandleFunc(contract.SignInPage.Path, s.serveSignInPage).Methods("GET")
	router.HandleFunc(contract.SignInPage.Form.Action, s.serveLogin).Methods("POST")
	router.HandleFunc(contract.LandingPage.Path, s.serveStartPage).Methods("GET")
	router.HandleFunc(contract.LogoutPath, s.serveLogout).Methods("GET", "POST")

	assets := contract.Assets
	router.HandleFunc(assets.ConsolePath, s.serveAssetsConsole).Methods("GET")
	router.HandleFunc(uploadPath(assets), s.requireLogin(s.serveUpload)).Methods("POST")
	router.HandleFunc(strings.TrimSuffix(assets.Folder, "/")+"/{name}.json", s.requireLogin(s.serveAssetJSON)).Methods("GET")
	router.HandleFunc(assets.CSRFTokenPath, s.requireLogin(s.serveCSRFToken)).Methods("GET")
	router.HandleFunc(assets.CommandPath, s.requireLogin(s.serveCommand)).Methods("POST")
	router.NotFoundHandler = http.HandlerFunc(s.serveNotFound)
	s.handler = router

	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ActiveSessions returns the number of users currently logged in.
func (s *Service) ActiveSessions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sessions)
}

func elementID(selector string) string {
	return strings.TrimPrefix(selector, "#")
}

func (s *Service) serveSignInPage(w http.ResponseWriter, r *http.Request) {
	form := s.contract.SignInPage.Form
	params := signInPageParams{
		Title:      s.contract.SignInPage.Title,
		RevealID:   elementID(s.contract.SignInPage.RevealSelector),
		FormID:     elementID(form.Selector),
		Action:     form.Action,
		Resource:   s.contract.LandingPage.Path,
		UsernameID: elementID(form.UsernameSelector),
		PasswordID: elementID(form.PasswordSelector),
		SubmitID:   elementID(form.SubmitSelector),
		Failed:     r.URL.Query().Get("j_reason") == "invalid_login",
	}
	s.debugLogger.Printf("[mockaem] serving sign-in page (failed login: %t)", params.Failed)
	s.render(w, signInPageTemplate.Execute, params)
}

func (s *Service) serveLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("j_username")
	password := r.PostForm.Get("j_password")
	if username != s.credentials.Username || password != s.credentials.Password {
		s.debugLogger.Printf("[mockaem] rejected login for %q", username)
		target := s.contract.SignInPage.Path + "?" + url.Values{"j_reason": {"invalid_login"}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	token := uuid.NewString()
	s.lock.Lock()
	s.sessions[token] = username
	s.lock.Unlock()
	s.debugLogger.Printf("[mockaem] accepted login for %q", username)

	http.SetCookie(w, &http.Cookie{
		Name:     LoginTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	target := r.PostForm.Get("resource")
	if target == "" || !strings.HasPrefix(target, "/") {
		target = s.contract.LandingPage.Path
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Service) currentUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(LoginTokenCookie)
	if err != nil {
		return "", false
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	user, ok := s.sessions[cookie.Value]
	return user, ok
}

func (s *Service) serveStartPage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, s.contract.SignInPage.Path, http.StatusFound)
		return
	}
	s.render(w, startPageTemplate.Execute, startPageParams{
		Title:      s.contract.LandingPage.Title,
		Heading:    s.contract.LandingPage.Heading,
		LogoutPath: s.contract.LogoutPath,
		AssetsPath: s.contract.Assets.ConsolePath,
		Username:   user,
	})
}

func (s *Service) serveLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(LoginTokenCookie); err == nil {
		s.lock.Lock()
		delete(s.sessions, cookie.Value)
		s.lock.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: LoginTokenCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, s.contract.SignInPage.Path, http.StatusFound)
}

func (s *Service) serveNotFound(w http.ResponseWriter, r *http.Request) {
	s.debugLogger.Printf("[mockaem] no route for %s %s", r.Method, r.URL.Path)
	http.NotFound(w, r)
}

func (s *Service) render(w http.ResponseWriter, execute func(w io.Writer, data any) error, params any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := execute(w, params); err != nil {
		s.debugLogger.Printf("[mockaem] template error: %s", err)
		http.Error(w, fmt.Sprintf("template error: %s", err), http.StatusInternalServerError)
	}
}
