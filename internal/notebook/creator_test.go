package notebook

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreatorWritesEmptyFile(t *testing.T) {
	ws := newFakeWorkspace()
	c := NewCreator(ws, discardLogger())
	defer c.Close()

	c.Enqueue("nb1/block.md")
	waitFor(t, func() bool { return ws.has("nb1/block.md") }, "file never created")

	data, err := ws.Read("nb1/block.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file, got %d bytes", len(data))
	}
}

func TestCreatorRetriesTransientFailures(t *testing.T) {
	ws := newFakeWorkspace()
	ws.failures = 2 // fail twice, succeed on the third attempt
	c := NewCreator(ws, discardLogger())
	defer c.Close()

	c.Enqueue("nb1/retry.py")
	waitFor(t, func() bool { return ws.has("nb1/retry.py") }, "file never created after retries")
}

func TestCreatorGivesUpAfterRetries(t *testing.T) {
	ws := newFakeWorkspace()
	ws.failures = createAttempts // more failures than attempts
	c := NewCreator(ws, discardLogger())

	c.Enqueue("nb1/doomed.csv")
	c.Close() // drains the queue

	if ws.has("nb1/doomed.csv") {
		t.Error("file should not exist after exhausted retries")
	}
}

func TestCreatorCloseDrains(t *testing.T) {
	ws := newFakeWorkspace()
	c := NewCreator(ws, discardLogger())

	for i := 0; i < 10; i++ {
		c.Enqueue("nb1/drain" + string(rune('0'+i)) + ".md")
	}
	c.Close()

	for i := 0; i < 10; i++ {
		if !ws.has("nb1/drain" + string(rune('0'+i)) + ".md") {
			t.Fatalf("queued file %d not written before Close returned", i)
		}
	}
}

func TestCreatorEnqueueAfterClose(t *testing.T) {
	ws := newFakeWorkspace()
	c := NewCreator(ws, discardLogger())
	c.Close()

	// Must not panic on a closed channel.
	c.Enqueue("nb1/late.md")
	if ws.has("nb1/late.md") {
		t.Error("request after Close should be dropped")
	}
}
