package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister map[string][]string

func (l staticLister) ListRegions() []string {
	// Fixed order for the tests.
	out := []string{}
	for _, r := range []string{"Chattogram", "Dhaka", "Sylhet"} {
		if _, ok := l[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (l staticLister) ListSubRegions(region string) []string { return l[region] }

var lister = staticLister{
	"Chattogram": {"Bandarban", "Cox's Bazar"},
	"Dhaka":      {"Dhaka", "Gazipur"},
	"Sylhet":     {},
}

// fakeHash is an in-memory HashClient.
type fakeHash struct {
	data map[string]map[string]string
	err  error
}

func newFakeHash() *fakeHash { return &fakeHash{data: map[string]map[string]string{}} }

func (f *fakeHash) HGet(_ context.Context, key, field string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeHash) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	if f.data[key] == nil {
		f.data[key] = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		f.data[key][values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func stores(t *testing.T) map[string]Store {
	file, err := OpenFile(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"redis":  NewRedis(newFakeHash()),
	}
}

func TestRestoreDefaultsToFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			region, sub := Restore(context.Background(), lister, s, "alice")
			assert.Equal(t, "Chattogram", region)
			assert.Equal(t, "Bandarban", sub)
		})
	}
}

func TestRestoreUsesSavedSelection(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Remember(ctx, s, "alice", "Dhaka", "Gazipur"))
			require.NoError(t, Remember(ctx, s, "alice", "Chattogram", "Cox's Bazar"))
			require.NoError(t, s.SetRegion(ctx, "alice", "Dhaka"))

			region, sub := Restore(ctx, lister, s, "alice")
			assert.Equal(t, "Dhaka", region)
			assert.Equal(t, "Gazipur", sub, "sub-region remembered per region")

			region, sub = Restore(ctx, lister, s, "bob")
			assert.Equal(t, "Chattogram", region)
			assert.Equal(t, "Bandarban", sub, "clients are independent")
		})
	}
}

func TestRestoreIgnoresStaleNames(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, Remember(ctx, s, "alice", "Rangpur", "Dinajpur"))
	region, sub := Restore(ctx, lister, s, "alice")
	assert.Equal(t, "Chattogram", region)
	assert.Equal(t, "Bandarban", sub)

	require.NoError(t, Remember(ctx, s, "alice", "Dhaka", "Old Dhaka"))
	region, sub = Restore(ctx, lister, s, "alice")
	assert.Equal(t, "Dhaka", region)
	assert.Equal(t, "Dhaka", sub)
}

func TestRestoreRegionWithoutSubRegions(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.SetRegion(ctx, "alice", "Sylhet"))
	region, sub := Restore(ctx, lister, s, "alice")
	assert.Equal(t, "Sylhet", region)
	assert.Empty(t, sub)
}

func TestRestoreEmptyDataset(t *testing.T) {
	region, sub := Restore(context.Background(), staticLister{}, NewMemory(), "alice")
	assert.Empty(t, region)
	assert.Empty(t, sub)
}

func TestRestoreSurvivesStoreErrors(t *testing.T) {
	h := newFakeHash()
	h.err = errors.New("connection refused")
	region, sub := Restore(context.Background(), lister, NewRedis(h), "alice")
	assert.Equal(t, "Chattogram", region)
	assert.Equal(t, "Bandarban", sub)

	assert.Error(t, Remember(context.Background(), NewRedis(h), "alice", "Dhaka", "Dhaka"))
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, Remember(ctx, f, "tui", "Dhaka", "Gazipur"))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	region, err := reopened.Region(ctx, "tui")
	require.NoError(t, err)
	assert.Equal(t, "Dhaka", region)
	sub, err := reopened.SubRegion(ctx, "tui", "Dhaka")
	require.NoError(t, err)
	assert.Equal(t, "Gazipur", sub)
}

func TestRestoreSubRegionForChosenRegion(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, Remember(ctx, s, "alice", "Chattogram", "Cox's Bazar"))

	assert.Equal(t, "Dhaka", RestoreSubRegion(ctx, lister, s, "alice", "Dhaka"), "first when nothing saved for the region")
	assert.Equal(t, "Cox's Bazar", RestoreSubRegion(ctx, lister, s, "alice", "Chattogram"))
	assert.Empty(t, RestoreSubRegion(ctx, lister, s, "alice", "Sylhet"))
	assert.Empty(t, RestoreSubRegion(ctx, lister, s, "alice", "Atlantis"))
}
