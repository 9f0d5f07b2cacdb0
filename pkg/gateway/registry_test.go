package gateway

import (
	"testing"

	"pgregory.net/rapid"
)

func TestRegistryRegisterReportsTransition(t *testing.T) {
	reg := NewRegistry(nil)

	conn1, _ := newTestConn(1)
	if !reg.Register(conn1) {
		t.Error("first connection should report the identity coming online")
	}

	conn2, _ := newTestConn(1)
	if reg.Register(conn2) {
		t.Error("second device must not report a fresh online transition")
	}

	if got := reg.ConnectionCount(1); got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}
}

func TestRegistryUnregisterReportsOfflineOnlyAtZero(t *testing.T) {
	reg := NewRegistry(nil)

	conn1, _ := newTestConn(1)
	conn2, _ := newTestConn(1)
	reg.Register(conn1)
	reg.Register(conn2)

	if reg.Unregister(conn1) {
		t.Error("identity with a remaining device must not go offline")
	}
	if !reg.IsOnline(1) {
		t.Error("identity should still be online")
	}

	if !reg.Unregister(conn2) {
		t.Error("last disconnect should report the identity going offline")
	}
	if reg.IsOnline(1) {
		t.Error("identity should be offline")
	}
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	reg := NewRegistry(nil)

	conn, _ := newTestConn(1)
	reg.Register(conn)

	if !reg.Unregister(conn) {
		t.Error("first unregister should report offline")
	}
	if reg.Unregister(conn) {
		t.Error("second unregister must be a no-op")
	}
}

func TestRegistryOnlineIDs(t *testing.T) {
	reg := NewRegistry(nil)

	for _, userID := range []int64{1, 1, 2, 3} {
		conn, _ := newTestConn(userID)
		reg.Register(conn)
	}

	ids := reg.OnlineIDs()
	if len(ids) != 3 {
		t.Errorf("expected 3 online identities, got %d", len(ids))
	}
}

// TestRegistryPresenceInvariant drives the registry through random
// connect/disconnect interleavings and checks it never disagrees with a
// model: an identity is online exactly while it holds at least one
// connection.
func TestRegistryPresenceInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := NewRegistry(nil)
		model := make(map[int64]map[*Conn]struct{})
		var live []*Conn

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) == 0 || rapid.Bool().Draw(t, "register") {
				userID := rapid.Int64Range(1, 5).Draw(t, "userID")
				conn, _ := newTestConn(userID)

				cameOnline := reg.Register(conn)
				if cameOnline != (len(model[userID]) == 0) {
					t.Fatalf("register transition mismatch for user %d", userID)
				}
				if model[userID] == nil {
					model[userID] = make(map[*Conn]struct{})
				}
				model[userID][conn] = struct{}{}
				live = append(live, conn)
			} else {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "idx")
				conn := live[idx]
				live = append(live[:idx], live[idx+1:]...)

				wentOffline := reg.Unregister(conn)
				delete(model[conn.UserID()], conn)
				if wentOffline != (len(model[conn.UserID()]) == 0) {
					t.Fatalf("unregister transition mismatch for user %d", conn.UserID())
				}
			}

			for userID, conns := range model {
				if reg.IsOnline(userID) != (len(conns) > 0) {
					t.Fatalf("IsOnline(%d) disagrees with model", userID)
				}
				if reg.ConnectionCount(userID) != len(conns) {
					t.Fatalf("ConnectionCount(%d) disagrees with model", userID)
				}
			}
		}
	})
}
