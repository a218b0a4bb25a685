package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API document from disk, as YAML or converted
// to JSON.
type OpenAPIHandler struct {
	docPath string
	baseDir string
}

// NewOpenAPIHandler resolves the document path up front so later reads
// cannot escape its directory.
func NewOpenAPIHandler(docPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(docPath)
	baseDir, _ := filepath.Abs(filepath.Dir(docPath))
	return &OpenAPIHandler{docPath: absPath, baseDir: baseDir}
}

// RegisterRoutes registers the OpenAPI document routes.
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

func (h *OpenAPIHandler) readDoc() ([]byte, error) {
	rel, err := filepath.Rel(h.baseDir, filepath.Clean(h.docPath))
	if err != nil {
		return nil, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, os.ErrPermission
	}
	return os.ReadFile(h.docPath)
}

// ServeYAML serves the document as stored.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	data, err := h.readDoc()
	if err != nil {
		http.Error(w, "OpenAPI document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(data); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// ServeJSON converts the YAML document to JSON on the fly.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.readDoc()
	if err != nil {
		http.Error(w, "OpenAPI document not found", http.StatusNotFound)
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		http.Error(w, "Failed to parse OpenAPI document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
	}
}
