package mockaem

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/adobe/aem-test-harness/data"
)

// CSRFTokenHeader is the request header in which the command servlet expects a CSRF token.
const CSRFTokenHeader = "CSRF-Token"

const maxUploadSize = 10 << 20

func uploadPath(assets data.AssetsConsole) string {
	return strings.TrimSuffix(assets.Folder, "/") + ".createasset.html"
}

// Assets returns the repository paths of the assets stored so far, sorted.
func (s *Service) Assets() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return slices.Sorted(maps.Keys(s.assets))
}

// requireLogin answers 403 to requests without a valid login token, as the servlets of a real
// instance do for anonymous users.
func (s *Service) requireLogin(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentUser(r); !ok {
			s.debugLogger.Printf("[mockaem] anonymous %s %s", r.Method, r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		handler(w, r)
	}
}

func (s *Service) serveAssetsConsole(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); !ok {
		http.Redirect(w, r, s.contract.SignInPage.Path, http.StatusFound)
		return
	}
	s.render(w, assetsConsoleTemplate.Execute, assetsConsoleParams{
		Title:      s.contract.Assets.Title,
		UploadPath: uploadPath(s.contract.Assets),
		Assets:     s.Assets(),
	})
}

func (s *Service) serveUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "malformed upload", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		http.Error(w, "no file in upload", http.StatusBadRequest)
		return
	}
	s.lock.Lock()
	for _, f := range files {
		path := s.contract.Assets.AssetPath(f.Filename)
		s.assets[path] = f.Size
		s.debugLogger.Printf("[mockaem] stored asset %s (%d bytes)", path, f.Size)
	}
	s.lock.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) serveAssetJSON(w http.ResponseWriter, r *http.Request) {
	path := s.contract.Assets.AssetPath(mux.Vars(r)["name"])
	s.lock.Lock()
	size, ok := s.assets[path]
	s.lock.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]interface{}{
		"jcr:primaryType": "dam:Asset",
		"jcr:content": map[string]interface{}{
			"dam:size": size,
		},
	})
}

func (s *Service) serveCSRFToken(w http.ResponseWriter, _ *http.Request) {
	token := uuid.NewString()
	s.lock.Lock()
	s.csrfTokens[token] = true
	s.lock.Unlock()
	writeJSON(w, map[string]string{"token": token})
}

func (s *Service) serveCommand(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	validToken := s.csrfTokens[r.Header.Get(CSRFTokenHeader)]
	s.lock.Unlock()
	if !validToken {
		s.debugLogger.Printf("[mockaem] command without a valid CSRF token")
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	if cmd := r.PostForm.Get("cmd"); cmd != "deletePage" {
		http.Error(w, "unsupported command "+cmd, http.StatusBadRequest)
		return
	}
	path := r.PostForm.Get("path")
	s.lock.Lock()
	_, ok := s.assets[path]
	delete(s.assets, path)
	s.lock.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.debugLogger.Printf("[mockaem] deleted asset %s", path)
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
