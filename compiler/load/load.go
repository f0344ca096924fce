package load

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a descriptor file.
type Format string

// Descriptor formats.
const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// FormatOf returns the format of a descriptor file from its extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	case ".msgpack", ".mpk":
		return FormatMsgpack, true
	default:
		return "", false
	}
}

// Load reads the schemas at path. A directory is read file by file in name
// order; files of unknown format and subdirectories are skipped.
func Load(path string) ([]*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var schemas []*Schema
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); !ok {
			continue
		}
		s, err := LoadFile(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s...)
	}
	return schemas, nil
}

// LoadFile reads the schemas of a single descriptor file.
func LoadFile(path string) ([]*Schema, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("load %s: unknown descriptor format", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	schemas, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return schemas, nil
}

// Decode decodes a descriptor document of the given format.
func Decode(data []byte, format Format) ([]*Schema, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatMsgpack:
		return UnmarshalSnapshot(data)
	default:
		return nil, fmt.Errorf("unknown descriptor format %q", format)
	}
	for i, s := range doc.Types {
		if s == nil || s.Name == "" {
			return nil, fmt.Errorf("type #%d: missing name", i)
		}
	}
	return doc.Types, nil
}

// MarshalSnapshot encodes the schemas as a msgpack snapshot. Field names
// follow the JSON descriptor format.
func MarshalSnapshot(schemas []*Schema) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetOmitEmpty(true)
	if err := enc.Encode(&Document{Types: schemas}); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes a snapshot written by MarshalSnapshot.
func UnmarshalSnapshot(b []byte) ([]*Schema, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return doc.Types, nil
}

// WriteSnapshot writes the msgpack snapshot of the schemas to path.
func WriteSnapshot(path string, schemas []*Schema) error {
	b, err := MarshalSnapshot(schemas)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
