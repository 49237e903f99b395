package processdef

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Parse decodes a process definition. JSON input is detected by its leading brace,
// everything else is read as YAML with unknown fields rejected.
func Parse(data []byte) (*models.Process, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty process definition")
	}

	var process models.Process
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&process); err != nil {
			return nil, fmt.Errorf("decode json process: %w", err)
		}
		return &process, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(trimmed))
	dec.KnownFields(true)
	if err := dec.Decode(&process); err != nil {
		return nil, fmt.Errorf("decode yaml process: %w", err)
	}
	return &process, nil
}

// LoadFile reads and parses a process definition file.
func LoadFile(path string) (*models.Process, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	process, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return process, nil
}

// Marshal renders a process as YAML.
func Marshal(process *models.Process) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(process); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DirSource serves process definitions from files named <id>.yaml, <id>.yml or <id>.json.
type DirSource struct {
	dir string
}

// NewDirSource builds a file-backed process source.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// GetProcess loads the definition for id. The file's own id must match.
func (s *DirSource) GetProcess(ctx context.Context, id string) (*models.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid process id")
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, id+ext)
		process, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read process definition")
		}
		if process.ID == "" {
			process.ID = id
		}
		if process.ID != id {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("process file %s declares id %q", filepath.Base(path), process.ID))
		}
		return process, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "process not found")
}
