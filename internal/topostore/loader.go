package topostore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/signalsfoundry/optical-pce/internal/measure"
	"github.com/signalsfoundry/optical-pce/model"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a loaded document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for file extensions other than .json,
// .yaml and .yml.
var ErrUnknownFormat = errors.New("unknown document format")

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

func decode(r io.Reader, f Format, v any) error {
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err := dec.Decode(v)
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty document")
		}
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func decodeFile(path string, v any) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decode(bytes.NewReader(data), f, v)
}

// LoadSnapshot decodes a topology snapshot from r.
func LoadSnapshot(r io.Reader, f Format) (*model.TopologySnapshot, error) {
	var snap model.TopologySnapshot
	if err := decode(r, f, &snap); err != nil {
		return nil, fmt.Errorf("LoadSnapshot: decode failed: %w", err)
	}
	return &snap, nil
}

// LoadSnapshotFile decodes a topology snapshot from a .json or .yaml file.
func LoadSnapshotFile(path string) (*model.TopologySnapshot, error) {
	var snap model.TopologySnapshot
	if err := decodeFile(path, &snap); err != nil {
		return nil, fmt.Errorf("LoadSnapshotFile %q: %w", path, err)
	}
	return &snap, nil
}

// LoadRequest decodes a service request from r. Field validation is left
// to the engine.
func LoadRequest(r io.Reader, f Format) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	if err := decode(r, f, &req); err != nil {
		return nil, fmt.Errorf("LoadRequest: decode failed: %w", err)
	}
	return &req, nil
}

// LoadRequestFile decodes a service request from a .json or .yaml file.
func LoadRequestFile(path string) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	if err := decodeFile(path, &req); err != nil {
		return nil, fmt.Errorf("LoadRequestFile %q: %w", path, err)
	}
	return &req, nil
}

// LoadMeasurementsFile decodes per-node span-loss readings keyed by node
// ID.
func LoadMeasurementsFile(path string) (measure.Static, error) {
	var m map[string][]measure.Reading
	if err := decodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("LoadMeasurementsFile %q: %w", path, err)
	}
	return measure.Static(m), nil
}
