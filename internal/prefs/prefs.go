// Package prefs remembers each client's last region and, per region, the
// last sub-region. The countdown core never reads this; the front-ends use
// it to restore a selection.
package prefs

import (
	"context"
	"slices"
	"sync"
)

// Store persists selections keyed by an opaque client ID.
type Store interface {
	Region(ctx context.Context, client string) (string, error)
	SetRegion(ctx context.Context, client, region string) error
	SubRegion(ctx context.Context, client, region string) (string, error)
	SetSubRegion(ctx context.Context, client, region, subRegion string) error
}

// Lister is the part of the dataset Restore needs.
type Lister interface {
	ListRegions() []string
	ListSubRegions(region string) []string
}

// Restore picks the selection to show a returning client: the saved region
// if it still exists, otherwise the first region; then the saved
// sub-region for that region if it still exists, otherwise the first one.
// Store failures degrade to the defaults.
func Restore(ctx context.Context, l Lister, s Store, client string) (region, subRegion string) {
	regions := l.ListRegions()
	if len(regions) == 0 {
		return "", ""
	}

	region = regions[0]
	if saved, err := s.Region(ctx, client); err == nil && slices.Contains(regions, saved) {
		region = saved
	}

	return region, RestoreSubRegion(ctx, l, s, client, region)
}

// RestoreSubRegion picks the sub-region of an already chosen region: the
// saved one if still listed, otherwise the first. It is "" only when the
// region has no sub-regions.
func RestoreSubRegion(ctx context.Context, l Lister, s Store, client, region string) string {
	subs := l.ListSubRegions(region)
	if len(subs) == 0 {
		return ""
	}
	if saved, err := s.SubRegion(ctx, client, region); err == nil && slices.Contains(subs, saved) {
		return saved
	}
	return subs[0]
}

// Remember saves both halves of a selection.
func Remember(ctx context.Context, s Store, client, region, subRegion string) error {
	if err := s.SetRegion(ctx, client, region); err != nil {
		return err
	}
	if region == "" || subRegion == "" {
		return nil
	}
	return s.SetSubRegion(ctx, client, region, subRegion)
}

// record is one client's saved state.
type record struct {
	Region     string            `yaml:"region,omitempty"`
	SubRegions map[string]string `yaml:"sub_regions,omitempty"`
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	clients map[string]*record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{clients: map[string]*record{}}
}

func (m *Memory) Region(_ context.Context, client string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r := m.clients[client]; r != nil {
		return r.Region, nil
	}
	return "", nil
}

func (m *Memory) SetRegion(_ context.Context, client, region string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordLocked(client).Region = region
	return nil
}

func (m *Memory) SubRegion(_ context.Context, client, region string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r := m.clients[client]; r != nil {
		return r.SubRegions[region], nil
	}
	return "", nil
}

func (m *Memory) SetSubRegion(_ context.Context, client, region, subRegion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recordLocked(client)
	if r.SubRegions == nil {
		r.SubRegions = map[string]string{}
	}
	r.SubRegions[region] = subRegion
	return nil
}

func (m *Memory) recordLocked(client string) *record {
	r := m.clients[client]
	if r == nil {
		r = &record{}
		m.clients[client] = r
	}
	return r
}
