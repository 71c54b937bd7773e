package configstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platewire/platewire/infra/logger"
)

const doc = `{
  "printers": [
    {"id": "kitchen", "name": "Kitchen", "host": "10.0.0.5", "port": 9100, "active": true, "priority": 2},
    {"id": "bar", "name": "Bar", "host": "10.0.0.6", "active": false, "priority": 1}
  ],
  "assignments": [
    {"level": "item", "target_id": "steak", "printer": "kitchen", "priority": 1, "active": true},
    {"level": "category", "target_id": "drinks", "printer": "bar", "priority": 1, "active": true}
  ]
}`

func write(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestFileStore_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.json")
	write(t, path, doc)

	s, err := NewFileStore(path, logger.NopLogger{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.True(t, s.Ready())

	active := s.ActiveTargets()
	require.Len(t, active, 1)
	require.Equal(t, "kitchen", active[0].ID)
	require.Equal(t, "10.0.0.5:9100", active[0].Addr())

	bar, ok := s.TargetByID("bar")
	require.True(t, ok)
	require.False(t, bar.Active)

	// Ordinals default to file position so priority ties stay stable.
	as := s.Assignments()
	require.Len(t, as, 2)
	require.Equal(t, 1, as[0].Ordinal)
	require.Equal(t, 2, as[1].Ordinal)
}

func TestFileStore_DefaultPortOmitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.json")
	write(t, path, `{"printers": [{"id": "p", "name": "P", "host": "h", "active": true}]}`)
	s, err := NewFileStore(path, logger.NopLogger{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	p, _ := s.TargetByID("p")
	require.Equal(t, "h:9100", p.Addr())
}

func TestFileStore_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.json")
	write(t, path, `{"printers": [{"id": "", "host": "h"}]}`)
	_, err := NewFileStore(path, logger.NopLogger{})
	require.Error(t, err)

	write(t, path, `not json`)
	_, err = NewFileStore(path, logger.NopLogger{})
	require.Error(t, err)
}

func TestFileStore_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.json")
	write(t, path, doc)

	s, err := NewFileStore(path, logger.NopLogger{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Watch())

	write(t, path, `{"printers": [{"id": "pass", "name": "Pass", "host": "10.0.0.7", "active": true}]}`)
	require.Eventually(t, func() bool {
		_, ok := s.TargetByID("pass")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileStore_BadReloadKeepsOldState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.json")
	write(t, path, doc)

	s, err := NewFileStore(path, logger.NopLogger{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Watch())

	write(t, path, `broken`)
	time.Sleep(100 * time.Millisecond)
	_, ok := s.TargetByID("kitchen")
	require.True(t, ok, "previous config should survive a bad reload")
}
