package engine

import (
	"bytes"
	"encoding/gob"
	"os"
)

// snapshotEntry is the on-disk shape spec §6 describes: "a binary-encoded
// mapping from key to {key, value} pair." The per-entry Key field is
// redundant with the map key it is stored under; this implementation
// keeps that redundancy rather than simplifying the format, since spec
// treats the codec as an opaque, implementation-owned round-trip (§1) and
// the concrete scenario in spec §8 only checks that values survive a
// reopen, not the wire shape of the file.
type snapshotEntry struct {
	Key   string
	Value string
}

// encodeSnapshot gob-encodes a key->value mapping into spec's snapshot
// format.
func encodeSnapshot(data map[string]string) ([]byte, error) {
	entries := make(map[string]snapshotEntry, len(data))
	for k, v := range data {
		entries[k] = snapshotEntry{Key: k, Value: v}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeSnapshot is the inverse of encodeSnapshot.
func decodeSnapshot(data []byte) (map[string]string, error) {
	var entries map[string]snapshotEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for k, e := range entries {
		out[k] = e.Value
	}
	return out, nil
}

// writeSnapshot serializes the current entry map and writes it to the
// configured file, truncating any previous contents. Failures are logged
// and swallowed (spec §4.5, §7): a bad snapshot write never fails the
// mutation that triggered it, and is never retried.
func (s *Store) writeSnapshot() {
	data, err := encodeSnapshot(s.Snapshot())
	if err != nil {
		s.logger.Warn().Err(err).Str("file", s.pers.File).Msg("failed to encode snapshot")
		s.reportSnapshot(false)
		return
	}
	if err := os.WriteFile(s.pers.File, data, 0o644); err != nil {
		s.logger.Warn().Err(err).Str("file", s.pers.File).Msg("failed to write snapshot")
		s.reportSnapshot(false)
		return
	}
	s.reportSnapshot(true)
}

func (s *Store) reportSnapshot(ok bool) {
	if s.onSnapshot != nil {
		s.onSnapshot(ok)
	}
}

// Open creates a Store and, if persistence is enabled and a snapshot file
// already exists, rehydrates it per spec §4.5: the shadow store's
// key->value pairs are replayed through Set with no TTL, in whatever
// order the decoded map iterates (so the shadow's recency order is not
// preserved — rehydration order defines the post-load recency). While
// replaying, persistence is disabled to avoid write amplification, then
// re-enabled.
func Open(cfg Config) *Store {
	s := New(cfg)
	if !cfg.Persistence.Enabled {
		return s
	}

	data, err := os.ReadFile(cfg.Persistence.File)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("file", cfg.Persistence.File).Msg("failed to read snapshot file")
		}
		return s
	}

	shadow, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", cfg.Persistence.File).Msg("failed to decode snapshot; starting empty")
		return s
	}

	s.pers.Enabled = false
	for k, v := range shadow {
		s.Set(k, v, nil)
	}
	s.pers.Enabled = true
	return s
}
