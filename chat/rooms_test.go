package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTableJoinLeave(t *testing.T) {
	table := NewRoomTable()
	a := newFakeSession("alice")
	b := newFakeSession("bob")

	table.Join(a, 7)
	table.Join(a, 7) // idempotent
	table.Join(b, 7)
	table.Join(a, 9)

	assert.True(t, table.IsMember(a, 7))
	assert.True(t, table.IsMember(b, 7))
	assert.Len(t, table.Members(7), 2)
	assert.ElementsMatch(t, []int64{7, 9}, table.Rooms(a))

	table.Leave(a, 7)
	assert.False(t, table.IsMember(a, 7))
	assert.Len(t, table.Members(7), 1)

	// leaving a room the session is not in is a no-op
	table.Leave(a, 7)
	table.Leave(a, 42)
	assert.Len(t, table.Members(7), 1)
}

// The membership set equals the set of connections whose most recent action
// was join and which have not disconnected.
func TestRoomTableMembershipTrace(t *testing.T) {
	table := NewRoomTable()
	a := newFakeSession("alice")
	b := newFakeSession("bob")
	c := newFakeSession("carol")

	table.Join(a, 7)
	table.Join(b, 7)
	table.Leave(a, 7)
	table.Join(a, 7)
	table.Join(c, 7)
	table.Leave(b, 7)

	members := table.Members(7)
	require.Len(t, members, 2)
	ids := []string{members[0].User().Id, members[1].User().Id}
	assert.ElementsMatch(t, []string{"alice", "carol"}, ids)
}

func TestRoomTableDrop(t *testing.T) {
	table := NewRoomTable()
	a := newFakeSession("alice")
	b := newFakeSession("bob")

	table.Join(a, 7)
	table.Join(a, 9)
	table.Join(b, 7)

	affected := table.Drop(a)
	assert.ElementsMatch(t, []int64{7, 9}, affected)
	assert.False(t, table.IsMember(a, 7))
	assert.False(t, table.IsMember(a, 9))
	assert.True(t, table.IsMember(b, 7))
	assert.Empty(t, table.Rooms(a))

	assert.Empty(t, table.Drop(a), "drop is idempotent")
}

func TestRoomTableBroadcast(t *testing.T) {
	table := NewRoomTable()
	a := newFakeSession("alice")
	b := newFakeSession("bob")
	c := newFakeSession("carol")

	table.Join(a, 7)
	table.Join(b, 7)
	table.Join(c, 9)

	table.Broadcast(7, "ping", "hello", nil)
	assert.Len(t, a.received("ping"), 1)
	assert.Len(t, b.received("ping"), 1)
	assert.Empty(t, c.received("ping"), "other rooms are not touched")

	table.Broadcast(7, "ping", "hello", func(s Session) bool {
		return s.User().Id == "bob"
	})
	assert.Len(t, a.received("ping"), 1)
	assert.Len(t, b.received("ping"), 2)
}
