package lifecycle

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hkerrors "github.com/input-output-hk/catalyst-forge-housekeeping/errors"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "exact", in: "abcde", n: 5, want: "abcde"},
		{name: "ascii", in: "abcdef", n: 4, want: "abcd"},
		{name: "multibyte boundary", in: "aé€", n: 4, want: "aé"},
		{name: "inside rune", in: "a€", n: 2, want: "a"},
		{name: "invalid byte before the cut", in: "ok\xff" + strings.Repeat("a", 2000), n: 1024, want: "ok\xff" + strings.Repeat("a", 1021)},
		{name: "rune ends at the cut", in: "a€b", n: 4, want: "a€"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}

func TestFailedOutcome(t *testing.T) {
	ev := event(RequestCreate, "Custom::CopyObjects", "")

	o := failedOutcome(ev, "phys-1", hkerrors.CodeNotFound, fmt.Errorf("source missing"))
	assert.Equal(t, StatusFailed, o.Status)
	assert.Equal(t, "NOT_FOUND: source missing", o.Reason)
	assert.Equal(t, "phys-1", o.PhysicalResourceID)
	assert.Equal(t, ev.StackID, o.StackID)
	assert.Equal(t, ev.RequestID, o.RequestID)
	assert.Equal(t, ev.LogicalResourceID, o.LogicalResourceID)
	assert.NotNil(t, o.Data)
	assert.Empty(t, o.Data)

	long := failedOutcome(ev, "phys-1", hkerrors.CodeUnknown, fmt.Errorf("%s", strings.Repeat("ü", 2000)))
	assert.LessOrEqual(t, len(long.Reason), maxReasonLength)
	assert.True(t, utf8.ValidString(long.Reason))
	assert.True(t, strings.HasPrefix(long.Reason, "UNKNOWN: "))
}

func TestSuccessOutcome(t *testing.T) {
	ev := event(RequestDelete, "Custom::EmptyBucket", "")

	o := successOutcome(ev, "phys-1", "2026/10/18/[$LATEST]abc", map[string]any{"Objects": 3})
	assert.Equal(t, StatusSuccess, o.Status)
	assert.Equal(t, "See the details in CloudWatch Log Stream: 2026/10/18/[$LATEST]abc", o.Reason)
	assert.Equal(t, map[string]any{"Objects": 3}, o.Data)

	empty := successOutcome(ev, "phys-1", "stream", nil)
	assert.NotNil(t, empty.Data)
}

func TestOutcomeSlot(t *testing.T) {
	slot := newOutcomeSlot()

	const claimers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("claimer-%d", i)
			if slot.claim(Outcome{PhysicalResourceID: id}) {
				mu.Lock()
				wins = append(wins, id)
				mu.Unlock()
				slot.complete(nil)
			}
		}()
	}
	wg.Wait()

	require.Len(t, wins, 1)
	o, err := slot.wait()
	require.NoError(t, err)
	assert.Equal(t, wins[0], o.PhysicalResourceID)
	assert.False(t, slot.claim(Outcome{}))
}

func TestOutcomeSlot_DeliveryError(t *testing.T) {
	slot := newOutcomeSlot()
	require.True(t, slot.claim(Outcome{Status: StatusFailed}))

	go slot.complete(fmt.Errorf("connection refused"))

	o, err := slot.wait()
	assert.Equal(t, StatusFailed, o.Status)
	assert.EqualError(t, err, "connection refused")
}
