package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		ops      []Operation
		wantOp   Operation
		wantKeep bool
	}{
		{name: "create then modify stays create", ops: []Operation{OpCreate, OpModify}, wantOp: OpCreate, wantKeep: true},
		{name: "create then delete cancels", ops: []Operation{OpCreate, OpDelete}, wantKeep: false},
		{name: "create then rename cancels", ops: []Operation{OpCreate, OpRename}, wantKeep: false},
		{name: "delete then create is modify", ops: []Operation{OpDelete, OpCreate}, wantOp: OpModify, wantKeep: true},
		{name: "modify then delete is delete", ops: []Operation{OpModify, OpDelete}, wantOp: OpDelete, wantKeep: true},
		{name: "modify then modify", ops: []Operation{OpModify, OpModify}, wantOp: OpModify, wantKeep: true},
		{name: "rename then create keeps latest", ops: []Operation{OpRename, OpCreate}, wantOp: OpCreate, wantKeep: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := FileEvent{Path: "a.txt", Operation: tt.ops[0]}
			next := FileEvent{Path: "a.txt", Operation: tt.ops[1]}

			got, keep := coalesce(tt.ops[0], prev, next)

			assert.Equal(t, tt.wantKeep, keep)
			if tt.wantKeep {
				assert.Equal(t, tt.wantOp, got.Operation)
			}
		})
	}
}

func TestDebouncer_BurstBecomesOneSortedBatch(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a burst of events for several files
	for i := 0; i < 3; i++ {
		d.Add(FileEvent{Path: "b.txt", Operation: OpModify})
		d.Add(FileEvent{Path: "a.txt", Operation: OpModify})
		time.Sleep(5 * time.Millisecond)
	}
	d.Add(FileEvent{Path: "c.txt", Operation: OpCreate})

	// Then: one batch, one event per path, sorted
	select {
	case events := <-d.Output():
		require.Len(t, events, 3)
		assert.Equal(t, "a.txt", events[0].Path)
		assert.Equal(t, "b.txt", events[1].Path)
		assert.Equal(t, "c.txt", events[2].Path)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncer_CancelledPairEmitsNothing(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "tmp.txt", Operation: OpCreate})
	d.Add(FileEvent{Path: "tmp.txt", Operation: OpDelete})

	select {
	case events := <-d.Output():
		t.Fatalf("unexpected batch: %v", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_Stop(t *testing.T) {
	// Given: a pending event
	d := NewDebouncer(time.Hour)
	d.Add(FileEvent{Path: "a.txt", Operation: OpModify})

	// When: stopped twice
	d.Stop()
	d.Stop()

	// Then: the output is closed and later adds are ignored
	_, ok := <-d.Output()
	assert.False(t, ok)
	assert.NotPanics(t, func() { d.Add(FileEvent{Path: "b.txt"}) })
}
