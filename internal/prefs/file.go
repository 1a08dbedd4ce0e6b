package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"fastcal/internal/config"
)

// File is a Memory store mirrored to a YAML file after every write.
type File struct {
	*Memory
	path string

	// flushMu orders snapshots and writes so an older snapshot never
	// lands after a newer one.
	flushMu sync.Mutex
}

// OpenFile loads path (a missing file is an empty store).
func OpenFile(path string) (*File, error) {
	f := &File{Memory: NewMemory(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	var clients map[string]*record
	if err := yaml.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	for id, r := range clients {
		if r != nil {
			f.clients[id] = r
		}
	}
	return f, nil
}

func (f *File) SetRegion(ctx context.Context, client, region string) error {
	if err := f.Memory.SetRegion(ctx, client, region); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) SetSubRegion(ctx context.Context, client, region, subRegion string) error {
	if err := f.Memory.SetSubRegion(ctx, client, region, subRegion); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) flush() error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.mu.RLock()
	data, err := yaml.Marshal(f.clients)
	f.mu.RUnlock()
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(f.path, data, ".fastcal-prefs-*.tmp")
}
