package executor

import (
	"os"
	"time"

	"github.com/haldenlabs/redikv/internal/metrics"
	"github.com/haldenlabs/redikv/internal/snapshot"
	"github.com/haldenlabs/redikv/internal/store"
)

// entriesFromStrings converts the string store's snapshot map into the
// codec's Entry shape, used by SAVE and by PSYNC's in-memory snapshot
// payload.
func entriesFromStrings(m map[string]store.StringEntry) []snapshot.Entry {
	out := make([]snapshot.Entry, 0, len(m))
	for k, e := range m {
		out = append(out, snapshot.Entry{
			Key:       []byte(k),
			Value:     e.Value,
			ExpireAt:  e.ExpireAt,
			HasExpiry: e.HasTTL,
			Millis:    true,
		})
	}
	return out
}

// StringEntriesFrom converts decoded snapshot entries back into the
// string store's native shape, used at startup and after a replica
// receives its initial snapshot.
func StringEntriesFrom(entries []snapshot.Entry) map[string]store.StringEntry {
	out := make(map[string]store.StringEntry, len(entries))
	for _, e := range entries {
		out[string(e.Key)] = store.StringEntry{
			Value:    e.Value,
			ExpireAt: e.ExpireAt,
			HasTTL:   e.HasExpiry,
		}
	}
	return out
}

func writeSnapshotEntries(path string, entries []snapshot.Entry) error {
	return snapshot.Write(path, entries, snapshot.Options{Compress: true})
}

func readSnapshotEntries(path string) ([]snapshot.Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return snapshot.Read(path)
}

func startSnapshotTimer(op string) func() {
	start := time.Now()
	return func() {
		metrics.SnapshotOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func currentPID() int { return os.Getpid() }
