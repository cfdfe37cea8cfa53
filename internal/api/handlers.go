package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmrzaf/tdgen/internal/app"
	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/infra/repos/requests"
	"github.com/mmrzaf/tdgen/internal/infra/repos/runs"
)

const maxRequestBytes = 1 << 20

type Handler struct {
	service   *app.GenerationService
	presets   requests.Repository
	outputDir string
}

// NewHandler serves generation over HTTP. Every output path a client sends is
// resolved inside outputDir.
func NewHandler(service *app.GenerationService, presets requests.Repository, outputDir string) *Handler {
	return &Handler{
		service:   service,
		presets:   presets,
		outputDir: outputDir,
	}
}

type errorResponse struct {
	Error  string       `json:"error"`
	Stage  domain.Stage `json:"stage,omitempty"`
	Field  string       `json:"field,omitempty"`
	Column string       `json:"column,omitempty"`
	Batch  *int         `json:"batch,omitempty"`
	Row    *int64       `json:"row,omitempty"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	res, err := h.service.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.Validate(req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"valid": true, "output_path": req.File.Path})
}

func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Types())
}

func (h *Handler) ListFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Formats())
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	list, err := h.presets.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.presets.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	status := domain.RunStatus(r.URL.Query().Get("status"))
	list, err := h.service.ListRuns(limit, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, run)
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*domain.GenerationRequest, bool) {
	var req domain.GenerationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := decodeJSONStrict(r, &req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return nil, false
	}
	path, err := confinePath(h.outputDir, req.File.Path)
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "file.path", Err: err})
		return nil, false
	}
	req.File.Path = path
	return &req, true
}

// confinePath resolves p against base and rejects anything that would land
// outside it, following symlinks in both.
func confinePath(base, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("output path is required")
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	if absBase, err = filepath.EvalSymlinks(absBase); err != nil {
		return "", err
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(absBase, target)
	}
	target, err = resolveExisting(filepath.Clean(target))
	if err != nil {
		return "", fmt.Errorf("path %q: %w", p, err)
	}
	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the output directory", p)
	}
	return target, nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of p and
// appends the rest unchanged.
func resolveExisting(p string) (string, error) {
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(p); lerr == nil {
			return "", fmt.Errorf("%s is a dangling symlink", p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		rest = append([]string{filepath.Base(p)}, rest...)
		p = parent
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, runs.ErrNotFound), errors.Is(err, requests.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error(), Stage: domain.StageOf(err)}

	var ve *domain.ValidationError
	var ge *domain.GenerationError
	var we *domain.WriteError
	switch {
	case errors.As(err, &ve):
		resp.Field, resp.Column = ve.Field, ve.Column
	case errors.As(err, &ge):
		resp.Column, resp.Batch, resp.Row = ge.Column, &ge.Batch, &ge.Row
	case errors.As(err, &we) && we.Batch >= 0:
		resp.Batch = &we.Batch
	}
	writeJSONStatus(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSONStrict(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
