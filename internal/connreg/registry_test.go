package connreg

import (
	"sort"
	"testing"
)

func TestAttachDetachSingleConnection(t *testing.T) {
	r := New()
	r.Attach("conn1", "user1")

	if !r.IsUserOnline("user1") {
		t.Fatal("expected user1 online after attach")
	}
	u, ok := r.UserOfSocket("conn1")
	if !ok || u != "user1" {
		t.Fatalf("expected conn1 -> user1, got %q, %v", u, ok)
	}

	user, leftRooms := r.Detach("conn1")
	if user != "user1" {
		t.Fatalf("expected detach to return user1, got %q", user)
	}
	if len(leftRooms) != 0 {
		t.Fatalf("expected no rooms left, got %v", leftRooms)
	}
	if r.IsUserOnline("user1") {
		t.Fatal("expected user1 offline after last detach")
	}
}

func TestMultipleConnectionsStayOnlineUntilLast(t *testing.T) {
	r := New()
	r.Attach("conn1", "user1")
	r.Attach("conn2", "user1")

	r.Detach("conn1")
	if !r.IsUserOnline("user1") {
		t.Fatal("expected user1 still online with one remaining connection")
	}

	r.Detach("conn2")
	if r.IsUserOnline("user1") {
		t.Fatal("expected user1 offline after all connections detach")
	}
}

func TestDetachLastConnectionLeavesAllRooms(t *testing.T) {
	r := New()
	r.Attach("conn1", "user1")
	r.JoinRoom("user1", "roomA")
	r.JoinRoom("user1", "roomB")

	_, leftRooms := r.Detach("conn1")
	sort.Strings(leftRooms)
	if len(leftRooms) != 2 || leftRooms[0] != "roomA" || leftRooms[1] != "roomB" {
		t.Fatalf("expected to leave both rooms, got %v", leftRooms)
	}
	if len(r.UsersInRoom("roomA")) != 0 || len(r.UsersInRoom("roomB")) != 0 {
		t.Fatal("expected rooms empty after last connection detaches")
	}
}

func TestRoomEmptyIffUserSetEmpty(t *testing.T) {
	r := New()
	r.JoinRoom("user1", "room1")
	r.JoinRoom("user2", "room1")

	r.LeaveRoom("user1", "room1")
	users := r.UsersInRoom("room1")
	if len(users) != 1 || users[0] != "user2" {
		t.Fatalf("expected only user2 left in room1, got %v", users)
	}

	r.LeaveRoom("user2", "room1")
	if len(r.UsersInRoom("room1")) != 0 {
		t.Fatal("expected room1 empty")
	}
}

func TestCleanupRemovesStaleEmptyEntries(t *testing.T) {
	r := New()
	r.JoinRoom("user1", "room1")
	r.LeaveRoom("user1", "room1")
	// LeaveRoom already drops emptied sets; plant a stale empty one directly.
	r.usersIn["room2"] = map[string]struct{}{}

	removed := r.Cleanup()
	if removed != 1 {
		t.Fatalf("expected 1 stale entry removed, got %d", removed)
	}
	if _, ok := r.usersIn["room2"]; ok {
		t.Fatal("expected stale empty room entry to be removed")
	}
}
