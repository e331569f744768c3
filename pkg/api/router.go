package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatrelay/pkg/api/handlers"
	"chatrelay/pkg/hub"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
)

// New builds the relay's HTTP handler: the two mutation endpoints, the two
// read endpoints, the push-channel upgrade, ops endpoints, and a static
// file server for everything else. The static server is a thin collaborator;
// all interesting behavior lives in the registered handlers.
func New(conv *state.Conversation, h *hub.Hub, assetsDir string) http.Handler {
	r := mux.NewRouter()

	handlers.RegisterMessages(r, conv)
	handlers.RegisterGroup(r, conv)

	r.HandleFunc("/ws", serveWS(conv, h)).Methods(http.MethodGet)

	// Liveness probe used by deployment systems and CI
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !store.Ready() {
			utils.JSONError(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Static assets, index.html at the root. MIME types, 404 and read
	// errors are the file server's business.
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(assetsDir)))

	return r
}
