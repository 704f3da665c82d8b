package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingTrackerSetAndClear(t *testing.T) {
	tracker := NewTypingTracker(3 * time.Second)

	tracker.SetTyping(7, "alice", true)
	tracker.SetTyping(7, "bob", true)
	assert.Equal(t, []string{"alice", "bob"}, tracker.Typing(7))
	assert.Empty(t, tracker.Typing(9))

	tracker.SetTyping(7, "alice", false)
	assert.Equal(t, []string{"bob"}, tracker.Typing(7))

	// clearing an absent entry is a no-op
	tracker.SetTyping(7, "alice", false)
	tracker.SetTyping(9, "alice", false)
	assert.Equal(t, []string{"bob"}, tracker.Typing(7))
}

func TestTypingTrackerExpiry(t *testing.T) {
	tracker := NewTypingTracker(3 * time.Second)
	now := time.Now()
	tracker.now = func() time.Time { return now }

	tracker.SetTyping(7, "alice", true)
	assert.Equal(t, []string{"alice"}, tracker.Typing(7), "present immediately after being set")

	now = now.Add(2 * time.Second)
	assert.Equal(t, []string{"alice"}, tracker.Typing(7))

	// a renewing signal replaces the prior deadline
	tracker.SetTyping(7, "alice", true)
	now = now.Add(2 * time.Second)
	assert.Equal(t, []string{"alice"}, tracker.Typing(7))

	now = now.Add(time.Second + time.Millisecond)
	assert.Empty(t, tracker.Typing(7), "absent after the timeout elapses without renewal")
}

func TestTypingTrackerSweep(t *testing.T) {
	tracker := NewTypingTracker(3 * time.Second)
	now := time.Now()
	tracker.now = func() time.Time { return now }

	tracker.SetTyping(7, "alice", true)
	tracker.SetTyping(9, "bob", true)
	now = now.Add(time.Second)
	tracker.SetTyping(9, "carol", true)

	assert.Empty(t, tracker.Sweep(), "nothing expired yet")

	now = now.Add(2*time.Second + time.Millisecond)
	affected := tracker.Sweep()
	assert.ElementsMatch(t, []int64{7, 9}, affected)
	assert.Empty(t, tracker.Typing(7))
	assert.Equal(t, []string{"carol"}, tracker.Typing(9))

	assert.Empty(t, tracker.Sweep(), "sweep only reports rooms that lost entries")
}

func TestTypingTrackerDropUser(t *testing.T) {
	tracker := NewTypingTracker(3 * time.Second)

	tracker.SetTyping(7, "alice", true)
	tracker.SetTyping(9, "alice", true)
	tracker.SetTyping(7, "bob", true)

	affected := tracker.DropUser("alice")
	assert.ElementsMatch(t, []int64{7, 9}, affected)
	assert.Equal(t, []string{"bob"}, tracker.Typing(7))
	assert.Empty(t, tracker.Typing(9))

	assert.Empty(t, tracker.DropUser("alice"), "drop is idempotent")
}
