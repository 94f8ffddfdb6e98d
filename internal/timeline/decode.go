package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"montage/internal/services"
)

// Decode reads a project document. format is "json" or "yaml"; an empty
// format sniffs the first non-space byte.
func Decode(r io.Reader, format string) (*Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = sniffFormat(data)
	}

	var project Project
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&project); err != nil {
			return nil, services.Wrap(services.ErrValidation, "timeline", "decode json", "", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&project); err != nil && err != io.EOF {
			return nil, services.Wrap(services.ErrValidation, "timeline", "decode yaml", "", err)
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "timeline", "decode", fmt.Sprintf("unsupported project format %q", format), nil)
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}
	return &project, nil
}

// LoadFile decodes a project from disk, choosing the format by extension.
func LoadFile(path string) (*Project, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	defer file.Close()

	format := ""
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
		format = "yaml"
	}
	project, err := Decode(file, format)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(project.Name) == "" {
		project.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return project, nil
}

func sniffFormat(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json"
	}
	return "yaml"
}
