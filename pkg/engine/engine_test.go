package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(capacity int) *Store {
	return New(Config{Capacity: capacity})
}

// TestLRUEviction is spec §8 scenario 1.
func TestLRUEviction(t *testing.T) {
	s := newTestStore(3)
	now := time.Now()

	s.Set("one", "1", nil)
	s.Set("two", "2", nil)
	s.Set("three", "3", nil)
	s.Set("four", "4", nil)

	_, ok := s.Get("one", now)
	require.False(t, ok)

	v, ok := s.Get("two", now)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

// TestLRURefresh is spec §8 scenario 2.
func TestLRURefresh(t *testing.T) {
	s := newTestStore(3)
	now := time.Now()

	s.Set("a", "a", nil)
	s.Set("b", "b", nil)
	s.Set("c", "c", nil)
	_, ok := s.Get("a", now)
	require.True(t, ok)

	s.Set("d", "d", nil)

	_, ok = s.Get("b", now)
	require.False(t, ok)

	v, ok := s.Get("a", now)
	require.True(t, ok)
	require.Equal(t, "a", v)
}

// TestTTLExpiry is spec §8 scenario 3.
func TestTTLExpiry(t *testing.T) {
	s := newTestStore(0)
	t0 := time.Now()
	exp := t0.Add(10 * time.Second)

	s.Set("foo", "bar", &exp)

	v, ok := s.Get("foo", t0.Add(1*time.Second))
	require.True(t, ok)
	require.Equal(t, "bar", v)

	_, ok = s.Get("foo", t0.Add(11*time.Second))
	require.False(t, ok)
}

// TestTTLMonotonicity covers the universal property in spec §8: once a key
// has expired at t1, it stays absent for any t2 >= t1.
func TestTTLMonotonicity(t *testing.T) {
	s := newTestStore(0)
	t0 := time.Now()
	exp := t0.Add(5 * time.Second)
	s.Set("k", "v", &exp)

	_, ok := s.Get("k", t0.Add(6*time.Second))
	require.False(t, ok)

	// The key is gone now (lazy-expiry deletes it), so re-setting a fresh
	// store and checking a later instant demonstrates monotonicity without
	// relying on internal deletion timing.
	s2 := newTestStore(0)
	s2.Set("k", "v", &exp)
	_, ok = s2.Get("k", t0.Add(10*time.Second))
	require.False(t, ok)
}

func TestCapacityNeverExceeded(t *testing.T) {
	s := newTestStore(2)
	for i := 0; i < 10; i++ {
		s.Set(string(rune('a'+i)), "v", nil)
		require.LessOrEqual(t, s.Len(), 2)
	}
}

// TestSetExistingKeyDoesNotEvict covers the Design Note fix: updating an
// existing key at capacity must not evict another key.
func TestSetExistingKeyDoesNotEvict(t *testing.T) {
	s := newTestStore(2)
	s.Set("a", "1", nil)
	s.Set("b", "2", nil)
	s.Set("a", "updated", nil)

	require.Equal(t, 2, s.Len())
	v, ok := s.Get("b", time.Now())
	require.True(t, ok)
	require.Equal(t, "2", v)
	v, ok = s.Get("a", time.Now())
	require.True(t, ok)
	require.Equal(t, "updated", v)
}

func TestSetClearsTTLWithoutNewTTL(t *testing.T) {
	s := newTestStore(0)
	now := time.Now()
	exp := now.Add(time.Second)
	s.Set("k", "v1", &exp)
	s.Set("k", "v2", nil)

	v, ok := s.Get("k", now.Add(time.Hour))
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestDelAbsentKeyIsNoop(t *testing.T) {
	s := newTestStore(0)
	require.False(t, s.Del("missing"))
}

func TestDelPresentKey(t *testing.T) {
	s := newTestStore(0)
	s.Set("k", "v", nil)
	require.True(t, s.Del("k"))
	_, ok := s.Get("k", time.Now())
	require.False(t, ok)
}

func TestFlushPreservesCapacity(t *testing.T) {
	s := newTestStore(2)
	s.Set("a", "1", nil)
	s.Set("b", "2", nil)
	s.Flush()
	require.Equal(t, 0, s.Len())

	s.Set("c", "3", nil)
	s.Set("d", "4", nil)
	s.Set("e", "5", nil)
	require.Equal(t, 2, s.Len())
}

func TestSingleNodeMoveIsNoop(t *testing.T) {
	s := newTestStore(0)
	s.Set("only", "v", nil)
	v, ok := s.Get("only", time.Now())
	require.True(t, ok)
	require.Equal(t, "v", v)
	require.Equal(t, s.head, s.tail)
}

// TestSnapshotRoundTrip is spec §8 scenario 6.
func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "snapshot.db")

	cfg := Config{Persistence: PersistenceConfig{Enabled: true, File: file, FlushEveryChanges: 2}}
	s := Open(cfg)

	s.Set("one", "one", nil)
	s.Set("two", "two", nil) // triggers a snapshot write

	s2 := Open(cfg)
	v, ok := s2.Get("one", time.Now())
	require.True(t, ok)
	require.Equal(t, "one", v)
	v, ok = s2.Get("two", time.Now())
	require.True(t, ok)
	require.Equal(t, "two", v)

	s2.Del("one")
	s2.Set("three", "three", nil) // triggers another snapshot write

	s3 := Open(cfg)
	_, ok = s3.Get("one", time.Now())
	require.False(t, ok)
	v, ok = s3.Get("two", time.Now())
	require.True(t, ok)
	require.Equal(t, "two", v)
	v, ok = s3.Get("three", time.Now())
	require.True(t, ok)
	require.Equal(t, "three", v)
}

func TestSnapshotCodecRoundTrip(t *testing.T) {
	data := map[string]string{"a": "1", "b": "2"}
	encoded, err := encodeSnapshot(data)
	require.NoError(t, err)

	decoded, err := decodeSnapshot(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}
