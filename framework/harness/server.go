package harness

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/adobe/aem-test-harness/framework"
	h "github.com/adobe/aem-test-harness/framework/helpers"
)

const httpListenerTimeout = time.Second * 10

// StartServer starts serving handler on the given port in the background and waits until the
// listener answers. A HEAD request to any path is answered with 200 so that readiness can be
// checked without touching the handler. The returned server is stopped with Shutdown.
func StartServer(port int, handler http.Handler, logger framework.Logger) (*http.Server, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("cannot listen on port %d: %w", port, err)
	}
	server := &http.Server{
		Addr: listener.Addr().String(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusOK)
				return
			}
			handler.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second, // arbitrary but non-infinite timeout to avoid Slowloris Attack
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("Server on port %d stopped: %s", port, err)
		}
	}()

	// Wait till the server is definitely listening for requests before anything uses it
	readyURL := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	ready := h.PollForSpecificResultValue(func() bool {
		resp, err := http.Head(readyURL) //nolint:gosec,noctx
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, httpListenerTimeout, time.Millisecond*10, true)
	if !ready {
		_ = server.Close()
		return nil, fmt.Errorf("could not detect own listener at %s", readyURL)
	}
	return server, nil
}

// ServerPort returns the port that a server started by StartServer is listening on. This is
// useful when it was started with port 0.
func ServerPort(server *http.Server) int {
	_, port, err := net.SplitHostPort(server.Addr)
	if err != nil {
		return 0
	}
	var n int
	_, _ = fmt.Sscanf(port, "%d", &n)
	return n
}
