package requests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
	"gopkg.in/yaml.v3"
)

// Preset is a saved generation request.
type Preset struct {
	ID      string                    `json:"id" yaml:"id"`
	Path    string                    `json:"path" yaml:"path"`
	Request *domain.GenerationRequest `json:"request" yaml:"request"`
}

type Repository interface {
	List() ([]*Preset, error)
	Get(id string) (*Preset, error)
	GetByPath(path string) (*Preset, error)
	Save(id string, req *domain.GenerationRequest) (*Preset, error)
}

var (
	ErrNotFound = errors.New("preset not found")
	presetIDRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

func (r *FileRepository) BaseDir() string { return r.baseDir }

func isPresetFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// List returns every preset that parses, sorted by ID. Files that fail to
// parse are skipped.
func (r *FileRepository) List() ([]*Preset, error) {
	if _, err := os.Stat(r.baseDir); os.IsNotExist(err) {
		return []*Preset{}, nil
	}

	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, err
	}

	presets := make([]*Preset, 0)
	for _, entry := range entries {
		if entry.IsDir() || !isPresetFile(entry.Name()) {
			continue
		}
		p, err := r.load(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presets, nil
}

// Get matches on preset ID first and then on the request name.
func (r *FileRepository) Get(id string) (*Preset, error) {
	presets, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if p.ID == id {
			return p, nil
		}
	}
	for _, p := range presets {
		if p.Request.Name == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetByPath loads a preset file inside the base directory. Relative paths
// are resolved against the base directory.
func (r *FileRepository) GetByPath(path string) (*Preset, error) {
	resolved, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return r.load(resolved)
}

func (r *FileRepository) resolve(path string) (string, error) {
	base, err := filepath.Abs(r.baseDir)
	if err != nil {
		return "", err
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(base, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("preset path %s is outside %s", path, r.baseDir)
	}
	return candidate, nil
}

// Save writes req as <id>.yaml, replacing any preset with the same ID.
func (r *FileRepository) Save(id string, req *domain.GenerationRequest) (*Preset, error) {
	if !presetIDRe.MatchString(id) {
		return nil, fmt.Errorf("invalid preset id %q: use letters, digits, '-' and '_'", id)
	}
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create presets directory: %w", err)
	}
	data, err := yaml.Marshal(req)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(r.baseDir, id+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return &Preset{ID: id, Path: path, Request: req}, nil
}

func (r *FileRepository) load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var req domain.GenerationRequest
	if filepath.Ext(path) == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&req)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&req)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Preset{ID: id, Path: path, Request: &req}, nil
}
