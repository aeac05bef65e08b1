package layoutfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dot5enko/virtual-grid/compression"
	"github.com/dot5enko/virtual-grid/io"
	"github.com/dot5enko/virtual-grid/schema"
)

const (
	layoutFileName = "layout.json.lz4"
	formatVersion  = 1
)

var (
	ErrInvalidParent = errors.New("invalid parent id")
	ErrFormat        = errors.New("unsupported layout file format")
)

type layoutFile struct {
	Version  int             `json:"version"`
	ParentID string          `json:"parent_id"`
	SavedAt  time.Time       `json:"saved_at"`
	Columns  []schema.Column `json:"columns"`
}

// LayoutManager persists column layouts as one compressed file per parent
// under storagePath/<parent>/. Layouts are cached after the first read.
type LayoutManager struct {
	layouts map[string][]schema.Column
	lock    sync.RWMutex

	storagePath string
}

func NewLayoutManager(storagePath string) *LayoutManager {
	return &LayoutManager{
		layouts: map[string][]schema.Column{},
		lock:    sync.RWMutex{},

		storagePath: storagePath,
	}
}

func (m *LayoutManager) getAbsStoragePath(segments ...string) string {

	pathSegments := []string{m.storagePath}
	pathSegments = append(pathSegments, segments...)

	return filepath.Join(pathSegments...)
}

func (m *LayoutManager) layoutPath(parentID string) (string, error) {
	if parentID == "" || parentID == "." || parentID == ".." || strings.ContainsAny(parentID, `/\`) {
		return "", fmt.Errorf("%w: `%s`", ErrInvalidParent, parentID)
	}
	return m.getAbsStoragePath(parentID, layoutFileName), nil
}

func (m *LayoutManager) cached(parentID string) ([]schema.Column, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	cols, ok := m.layouts[parentID]
	if !ok {
		return nil, false
	}
	return schema.CloneColumns(cols), true
}

func (m *LayoutManager) remember(parentID string, cols []schema.Column) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.layouts[parentID] = schema.CloneColumns(cols)
}

// Save writes the layout atomically; a crash mid-save leaves the previous file.
func (m *LayoutManager) Save(ctx context.Context, parentID string, cols []schema.Column) error {

	path, err := m.layoutPath(parentID)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(layoutFile{
		Version:  formatVersion,
		ParentID: parentID,
		SavedAt:  time.Now().UTC(),
		Columns:  cols,
	})
	if err != nil {
		return fmt.Errorf("unable to encode layout: %w", err)
	}

	packed, err := compression.CompressLz4(encoded)
	if err != nil {
		return err
	}

	if err := io.NewFileReader(path).WriteAtomic(packed); err != nil {
		return err
	}

	m.remember(parentID, cols)

	return nil
}

// Load returns the saved layout, or an empty slice when there is none.
func (m *LayoutManager) Load(ctx context.Context, parentID string) ([]schema.Column, error) {

	if cols, ok := m.cached(parentID); ok {
		return cols, nil
	}

	path, err := m.layoutPath(parentID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cols, err := readLayout(path)
	if errors.Is(err, io.ErrNotExists) {
		return []schema.Column{}, nil
	} else if err != nil {
		return nil, err
	}

	m.remember(parentID, cols)

	return cols, nil
}

func readLayout(path string) ([]schema.Column, error) {

	packed, err := io.NewFileReader(path).ReadAll()
	if err != nil {
		return nil, err
	}

	raw, err := compression.DecompressLz4(packed)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}

	var file layoutFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("unable to decode layout %s: %w", path, err)
	}

	if file.Version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, file.Version)
	}

	return file.Columns, nil
}

// Preload reads every layout under the storage path into the cache. Broken
// files are logged and skipped.
func (m *LayoutManager) Preload() (int, error) {

	entries, err := os.ReadDir(m.storagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) { // no layouts yet
			return 0, nil
		} else {
			log.Printf("unable to list layouts : %v", err)
			return 0, err
		}
	}

	loaded := 0

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		cols, err := readLayout(m.getAbsStoragePath(e.Name(), layoutFileName))
		if err != nil {
			if !errors.Is(err, io.ErrNotExists) {
				slog.Warn("layout skipped", "parent_id", e.Name(), "err", err)
			}
			continue
		}

		m.remember(e.Name(), cols)
		loaded++

		slog.Info("loaded layout from disk", "parent_id", e.Name(), "columns", len(cols))
	}

	return loaded, nil
}
