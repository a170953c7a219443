// Package connreg implements the Connection Registry (C2): the bidirectional
// connection/user/room index shared by every room worker and session-bus
// handler in the process.
//
// Grounded on the rias-glitch-telegram-webapp hub's map-plus-RWMutex shape
// (Hub.Rooms / Hub.UserRoom), generalized from the hub's single
// user-to-one-room assumption to the spec's full bidirectional multi-map
// (connection<->user, user<->rooms, room<->users), and from per-field ad hoc
// locking to the spec's single reader/writer lock over all four maps.
package connreg

import "sync"

// Registry is safe for concurrent use by many session-bus and room goroutines.
type Registry struct {
	mu sync.RWMutex

	userOf  map[string]string            // connection id -> user id
	socksOf map[string]map[string]struct{} // user id -> set of connection ids
	roomsOf map[string]map[string]struct{} // user id -> set of room ids
	usersIn map[string]map[string]struct{} // room id -> set of user ids
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		userOf:  make(map[string]string),
		socksOf: make(map[string]map[string]struct{}),
		roomsOf: make(map[string]map[string]struct{}),
		usersIn: make(map[string]map[string]struct{}),
	}
}

// Attach records that connection belongs to user. A user may have several
// concurrently attached connections.
func (r *Registry) Attach(connection, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userOf[connection] = user
	set, ok := r.socksOf[user]
	if !ok {
		set = make(map[string]struct{})
		r.socksOf[user] = set
	}
	set[connection] = struct{}{}
}

// Detach removes connection from the registry. If it was the user's last
// connection, the user is also removed from every room it was in and the
// list of rooms it was just evicted from is returned so the caller can emit
// a departure notice.
func (r *Registry) Detach(connection string) (user string, leftRooms []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.userOf[connection]
	if !ok {
		return "", nil
	}
	delete(r.userOf, connection)

	set := r.socksOf[user]
	delete(set, connection)
	if len(set) > 0 {
		return user, nil
	}
	delete(r.socksOf, user)

	rooms := r.roomsOf[user]
	leftRooms = make([]string, 0, len(rooms))
	for roomID := range rooms {
		leftRooms = append(leftRooms, roomID)
		if users := r.usersIn[roomID]; users != nil {
			delete(users, user)
			if len(users) == 0 {
				delete(r.usersIn, roomID)
			}
		}
	}
	delete(r.roomsOf, user)
	return user, leftRooms
}

// SocketsOfUser returns a snapshot of connection ids currently attached to user.
func (r *Registry) SocketsOfUser(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.socksOf[user])
}

// UserOfSocket returns the user owning connection, if attached.
func (r *Registry) UserOfSocket(connection string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.userOf[connection]
	return u, ok
}

// IsUserOnline reports whether user has at least one attached connection.
func (r *Registry) IsUserOnline(user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.socksOf[user]) > 0
}

// JoinRoom records that user is a member of room.
func (r *Registry) JoinRoom(user, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.roomsOf[user]
	if !ok {
		rooms = make(map[string]struct{})
		r.roomsOf[user] = rooms
	}
	rooms[room] = struct{}{}

	users, ok := r.usersIn[room]
	if !ok {
		users = make(map[string]struct{})
		r.usersIn[room] = users
	}
	users[user] = struct{}{}
}

// LeaveRoom removes user from room's membership.
func (r *Registry) LeaveRoom(user, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveRoomLocked(user, room)
}

func (r *Registry) leaveRoomLocked(user, room string) {
	if rooms := r.roomsOf[user]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.roomsOf, user)
		}
	}
	if users := r.usersIn[room]; users != nil {
		delete(users, user)
		if len(users) == 0 {
			delete(r.usersIn, room)
		}
	}
}

// LeaveAllRooms removes user from every room it currently belongs to.
func (r *Registry) LeaveAllRooms(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.roomsOf[user] {
		r.leaveRoomLocked(user, room)
	}
}

// UsersInRoom returns a snapshot of the user ids currently in room.
func (r *Registry) UsersInRoom(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.usersIn[room])
}

// RoomsOfUser returns a snapshot of the room ids user currently belongs to.
func (r *Registry) RoomsOfUser(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.roomsOf[user])
}

// Cleanup drops any room/user entries whose reverse index has gone stale
// (e.g. a room whose user set emptied out without an explicit LeaveRoom, or
// a user-of-socket entry left behind by a crashed detach). Returns the
// number of stale entries removed. Runs on the fixed schedule set up in
// cleanup.go.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for room, users := range r.usersIn {
		if len(users) == 0 {
			delete(r.usersIn, room)
			removed++
		}
	}
	for user, rooms := range r.roomsOf {
		if len(rooms) == 0 {
			delete(r.roomsOf, user)
			removed++
		}
	}
	for user, socks := range r.socksOf {
		if len(socks) == 0 {
			delete(r.socksOf, user)
			removed++
		}
	}
	for conn, user := range r.userOf {
		if _, ok := r.socksOf[user][conn]; !ok {
			delete(r.userOf, conn)
			removed++
		}
	}
	return removed
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
