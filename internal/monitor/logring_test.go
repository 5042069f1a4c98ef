package monitor

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/types"
)

func TestLogRingEvictsOldestAtCapacity(t *testing.T) {
	r := NewLogRing()
	for i := 0; i < ringCapacity+10; i++ {
		r.Add(types.LogEntry{Text: string(rune('a' + i%26))})
	}
	all := r.Query(nil, false, 0)
	require.Len(t, all, ringCapacity)
	require.Equal(t, int64(ringCapacity+10), r.Total())
}

func TestLogRingQueryNewestFirst(t *testing.T) {
	r := NewLogRing()
	r.Add(types.LogEntry{Text: "first"})
	r.Add(types.LogEntry{Text: "second"})

	out := r.Query(nil, false, 0)
	require.Equal(t, "second", out[0].Text)
	require.Equal(t, "first", out[1].Text)
}

func TestLogRingQueryLimit(t *testing.T) {
	r := NewLogRing()
	for i := 0; i < 20; i++ {
		r.Add(types.LogEntry{Text: "msg"})
	}
	out := r.Query(nil, false, 10)
	require.Len(t, out, 10)
}

func TestLogRingErrorsOnlyFilter(t *testing.T) {
	r := NewLogRing()
	r.Add(types.LogEntry{Text: "info", Severity: types.SeverityInfo})
	r.Add(types.LogEntry{Text: "boom", Severity: types.SeverityError})

	out := r.Query(nil, true, 0)
	require.Len(t, out, 1)
	require.Equal(t, "boom", out[0].Text)
}

func TestLogRingRegexFilter(t *testing.T) {
	r := NewLogRing()
	r.Add(types.LogEntry{Text: "connection refused"})
	r.Add(types.LogEntry{Text: "all good"})

	re := regexp.MustCompile(`refused`)
	out := r.Query(re, false, 0)
	require.Len(t, out, 1)
}
