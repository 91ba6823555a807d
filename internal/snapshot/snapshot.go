// SPDX-License-Identifier: MIT

// Package snapshot exports stored settings to a YAML document and imports
// them back.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/settings"
)

// FormatVersion is the document version written by Export.
const FormatVersion = 1

// ErrUnsupportedVersion is returned when importing a document of another version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Entry is one exported setting with its decoded value.
type Entry struct {
	Key    string        `yaml:"key"`
	Value  any           `yaml:"value"`
	Format record.Format `yaml:"format"`
}

// Document is the YAML snapshot layout.
type Document struct {
	Version    int       `yaml:"version"`
	ExportedAt time.Time `yaml:"exportedAt"`
	Settings   []Entry   `yaml:"settings"`
}

// Build collects every stored record into a document. Values that fail
// to decode are exported as their raw string.
func Build(ctx context.Context, s *settings.Settings) (Document, error) {
	recs, err := s.Records(ctx, "", "")
	if err != nil {
		return Document{}, fmt.Errorf("list settings: %w", err)
	}

	doc := Document{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Settings:   make([]Entry, 0, len(recs)),
	}
	for _, rec := range recs {
		value, err := settings.DecodeValue(rec.Value, rec.Format)
		if err != nil {
			value = rec.Value
		}
		doc.Settings = append(doc.Settings, Entry{Key: rec.Key(), Value: value, Format: rec.Format})
	}
	return doc, nil
}

// Export writes every stored setting to w and returns how many were written.
func Export(ctx context.Context, s *settings.Settings, w io.Writer) (int, error) {
	doc, err := Build(ctx, s)
	if err != nil {
		return 0, err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return len(doc.Settings), nil
}

// ExportFile writes the snapshot to path, replacing it atomically.
func ExportFile(ctx context.Context, s *settings.Settings, path string) (int, error) {
	logger := xlog.WithComponentFromContext(ctx, "snapshot")

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return 0, fmt.Errorf("create pending snapshot file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending snapshot file")
		}
	}()

	n, err := Export(ctx, s, pendingFile)
	if err != nil {
		return 0, err
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("atomically replace snapshot file: %w", err)
	}

	logger.Info().
		Str(xlog.FieldEvent, "snapshot.exported").
		Str("path", path).
		Int(xlog.FieldCount, n).
		Msg("settings exported")
	return n, nil
}

// Decode parses a snapshot document. Unknown fields are rejected.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, fmt.Errorf("decode snapshot: empty document")
		}
		return doc, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != FormatVersion {
		return doc, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return doc, nil
}

// Import applies every entry of the snapshot read from r with Set, in
// document order. It stops at the first failing entry and returns how
// many were applied before it.
func Import(ctx context.Context, s *settings.Settings, r io.Reader) (int, error) {
	doc, err := Decode(r)
	if err != nil {
		return 0, err
	}
	for i, e := range doc.Settings {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			return i, fmt.Errorf("import %s: %w", e.Key, err)
		}
	}
	return len(doc.Settings), nil
}

// ImportFile imports the snapshot stored at path.
func ImportFile(ctx context.Context, s *settings.Settings, path string) (int, error) {
	// #nosec G304 -- snapshot paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	n, err := Import(ctx, s, bytes.NewReader(data))
	if err != nil {
		return n, err
	}

	logger := xlog.WithComponentFromContext(ctx, "snapshot")
	logger.Info().
		Str(xlog.FieldEvent, "snapshot.imported").
		Str("path", path).
		Int(xlog.FieldCount, n).
		Msg("settings imported")
	return n, nil
}
