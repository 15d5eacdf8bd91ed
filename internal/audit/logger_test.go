package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdr-control/sdrc/internal/dacsync"
	"github.com/sdr-control/sdrc/internal/periph"
)

func readEntries(t *testing.T, dir string) []Entry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	return entries
}

func TestLogActionAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	defer l.Close()

	l.LogAction("set_subdev_spec", 0, map[string]any{"spec": "A:0 B:0"}, nil)
	l.LogAction("set_tick_rate", 1, map[string]any{"rate": 200e6}, nil)

	entries := readEntries(t, dir)
	require.Len(t, entries, 2)
	assert.Equal(t, "set_subdev_spec", entries[0].Action)
	assert.Equal(t, "SUCCESS", entries[0].Outcome)
	assert.Equal(t, "SUCCESS", entries[0].Code)
	assert.Equal(t, "A:0 B:0", entries[0].Params["spec"])
	assert.Equal(t, 1, entries[1].Mboard)
	assert.False(t, entries[1].Timestamp.IsZero())
}

func TestLogActionErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"config", periph.ConfigErrorf("bad subdev pairing"), "INVALID_CONFIGURATION"},
		{"hardware", periph.HardwareErrorf("register timeout"), "HARDWARE_ACCESS"},
		{"sync", &dacsync.SyncError{GroupSize: 2, Err: periph.HardwareErrorf("dac")}, "SYNC_FAILED"},
		{"other", os.ErrPermission, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			l, err := NewLogger(dir)
			require.NoError(t, err)
			defer l.Close()

			l.LogAction("set_samp_rate", 0, nil, tt.err)

			entries := readEntries(t, dir)
			require.Len(t, entries, 1)
			assert.Equal(t, "ERROR", entries[0].Outcome)
			assert.Equal(t, tt.code, entries[0].Code)
		})
	}
}

func TestLogAfterClose(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	// Must not panic or resurrect the file.
	l.LogAction("set_tick_rate", 0, nil, nil)
	assert.Empty(t, readEntries(t, dir))
}
