package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIsIdempotent(t *testing.T) {
	set := SeenSet{"https://example.com/a": "https://example.com/a"}

	Insert(set, "https://example.com/a")
	assert.Equal(t, "https://example.com/a", set["https://example.com/a"], "existing marker must be kept")

	Insert(set, "https://example.com/b")
	marker := set["https://example.com/b"]
	assert.NotEmpty(t, marker)
	Insert(set, "https://example.com/b")
	assert.Equal(t, marker, set["https://example.com/b"])

	assert.True(t, Contains(set, "https://example.com/a"))
	assert.True(t, Contains(set, "https://example.com/b"))
	assert.False(t, Contains(set, "https://example.com/c"))
}

func newFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "jobs.json")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s, _ := newFileStore(t)

	set, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := newFileStore(t)

	want := SeenSet{
		"https://example.com/jobs/~01": "https://example.com/jobs/~01",
		"https://example.com/jobs/~02": "2026-10-16T08:00:00Z",
		"https://example.com/jobs/<3>": "a&b",
	}
	require.NoError(t, s.Persist(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Persisting a freshly loaded set must not change the representation
	require.NoError(t, s.Persist(ctx, got))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStoreReadsLegacyState(t *testing.T) {
	s, path := newFileStore(t)
	legacy := "{\n  \"https://www.upwork.com/jobs/~01\": \"https://www.upwork.com/jobs/~01\"\n}"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	set, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, Contains(set, "https://www.upwork.com/jobs/~01"))
}

func TestFileStoreCorruptStateIsLoadError(t *testing.T) {
	for name, content := range map[string]string{
		"truncated":  `{"https://example.com/a": "x"`,
		"empty file": "",
		"array":      `["https://example.com/a"]`,
		"null":       "null",
	} {
		t.Run(name, func(t *testing.T) {
			s, path := newFileStore(t)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			set, err := s.Load(context.Background())
			assert.Nil(t, set)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
			assert.True(t, apperrors.IsFatal(err))
		})
	}
}

func TestFileStoreExclusiveLock(t *testing.T) {
	s, path := newFileStore(t)

	_, err := NewFileStore(path, nil)
	assert.Error(t, err, "second store on the same file must be refused")

	require.NoError(t, s.Close())
	other, err := NewFileStore(path, nil)
	require.NoError(t, err)
	assert.NoError(t, other.Close())
}

func TestFileStorePersistErrorKeepsOldState(t *testing.T) {
	ctx := context.Background()
	s, path := newFileStore(t)
	require.NoError(t, s.Persist(ctx, SeenSet{"a": "1"}))

	// Make the directory read-only so the temp file cannot be created
	dir := filepath.Dir(path)
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })
	if f, err := os.CreateTemp(dir, "writable"); err == nil {
		f.Close()
		os.Remove(f.Name())
		t.Skip("directory permissions are not enforced for this user")
	}

	err := s.Persist(ctx, SeenSet{"a": "1", "b": "2"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersist))

	set, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeenSet{"a": "1"}, set)
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), 0, "jobfeed:seen", nil)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	require.NoError(t, s.Ping(ctx))

	set, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, set)

	want := SeenSet{
		"https://example.com/jobs/~01": "2026-10-16T08:00:00Z",
		"https://example.com/jobs/~02": "2026-10-16T08:15:00Z",
	}
	require.NoError(t, s.Persist(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Persist replaces, it does not merge
	require.NoError(t, s.Persist(ctx, SeenSet{"https://example.com/jobs/~03": "m"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeenSet{"https://example.com/jobs/~03": "m"}, got)
	assert.Equal(t, "m", mr.HGet("jobfeed:seen", "https://example.com/jobs/~03"))

	require.NoError(t, s.Persist(ctx, SeenSet{}))
	assert.False(t, mr.Exists("jobfeed:seen"))
}

func TestRedisStoreWrongTypeIsLoadError(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, mr.Set("jobfeed:seen", "not a hash"))

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Load(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))

	err = s.Persist(ctx, SeenSet{"a": "1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersist))
}

func TestStoresLogLoadAndPersist(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	log := logger.New(&logs)

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "jobs.json"), log)
	require.NoError(t, err)
	defer fs.Close()
	_, err = fs.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, fs.Persist(ctx, SeenSet{"a": "1"}))
	_, err = fs.Load(ctx)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rs := NewRedisStore(mr.Addr(), 0, "jobfeed:seen", log)
	defer rs.Close()
	require.NoError(t, rs.Persist(ctx, SeenSet{"a": "1", "b": "2"}))
	_, err = rs.Load(ctx)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "No state file yet")
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("Persisted seen set")))
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("Loaded seen set")))
	assert.Contains(t, out, `"key":"jobfeed:seen","links":2`)
}
