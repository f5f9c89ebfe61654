package receiver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scan-io-git/lintgraph/internal/upload"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// Routes served by the receiver.
const (
	UploadRoute = "/api/upload-graph"
	HealthRoute = "/healthz"
)

// MaxBodySize bounds a single upload.
const MaxBodySize = 1 << 30

// Router returns the HTTP handler of the receiver.
func (r *Receiver) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(r.requestLogger)
	router.Use(middleware.Recoverer)
	r.RegisterRoutes(router)
	return router
}

// RegisterRoutes mounts the receiver endpoints on router.
func (r *Receiver) RegisterRoutes(router chi.Router) {
	router.Get(HealthRoute, r.Health)
	router.Post(UploadRoute, r.UploadGraph)
}

// Health answers liveness checks.
func (r *Receiver) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadGraph persists one uploaded file.
func (r *Receiver) UploadGraph(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body: "+err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "No data received")
		return
	}

	res, err := r.Process(req.Context(), req.Header.Get("Content-Type"), body, req.Header)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shrderrors.ErrInputMalformed) {
			status = http.StatusBadRequest
		}
		writeError(w, status, res.Message)
		return
	}

	writeJSON(w, http.StatusOK, upload.Response{
		Status:        upload.StatusReceived,
		SavedFilename: res.SavedFilename,
		Size:          res.Size,
		Message:       res.Message,
	})
}

func (r *Receiver) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		r.logger.Info("request served",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(req.Context()),
			"elapsed", time.Since(start).String(),
		)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, upload.Response{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
