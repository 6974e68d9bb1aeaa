package registry

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
)

const DefaultStripes = 32

// Registry tracks which connections are present in which room. It is purely
// in-memory; a room appears here only while it has at least one participant.
//
// Rooms are spread over lock stripes by id hash, so all changes to one room are
// serialized while unrelated rooms proceed in parallel.
type Registry struct {
	stripes []*stripe
	seq     atomic.Uint64

	// conn id -> rooms; guarded by connMu, always taken after a stripe lock
	connMu sync.Mutex
	byConn map[string]map[string]struct{}
}

type stripe struct {
	mu    sync.Mutex
	rooms map[string]map[string]entry // roomID -> connID -> entry
}

type entry struct {
	p   domain.Participant
	seq uint64
}

func New() *Registry {
	return NewWithStripes(DefaultStripes)
}

func NewWithStripes(n int) *Registry {
	if n <= 0 {
		n = DefaultStripes
	}
	r := &Registry{
		stripes: make([]*stripe, n),
		byConn:  make(map[string]map[string]struct{}),
	}
	for i := range r.stripes {
		r.stripes[i] = &stripe{rooms: make(map[string]map[string]entry)}
	}
	return r
}

func (r *Registry) stripeFor(roomID string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return r.stripes[h.Sum32()%uint32(len(r.stripes))]
}

// Add inserts p into roomID. Adding the same connection twice overwrites the
// earlier record but keeps its position in the join order.
func (r *Registry) Add(roomID string, p domain.Participant) {
	p.RoomID = roomID
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}

	s := r.stripeFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[string]entry)
		s.rooms[roomID] = members
	}
	seq := r.seq.Add(1)
	if prev, ok := members[p.ConnID]; ok {
		seq = prev.seq
	}
	members[p.ConnID] = entry{p: p, seq: seq}

	r.connMu.Lock()
	rooms, ok := r.byConn[p.ConnID]
	if !ok {
		rooms = make(map[string]struct{})
		r.byConn[p.ConnID] = rooms
	}
	rooms[roomID] = struct{}{}
	r.connMu.Unlock()
}

// Remove drops connID from roomID and returns who is left, read under the same
// lock as the removal. The room entry is deleted once it is empty. removed is
// false when the connection was not in the room.
func (r *Registry) Remove(roomID, connID string) (remaining []domain.Participant, removed bool) {
	s := r.stripeFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if ok {
		if _, removed = members[connID]; removed {
			delete(members, connID)
		}
		if len(members) == 0 {
			delete(s.rooms, roomID)
		}
	}

	r.connMu.Lock()
	if rooms, ok := r.byConn[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.byConn, connID)
		}
	}
	r.connMu.Unlock()

	return snapshot(members), removed
}

// List returns the participants of roomID in join order. Unknown rooms yield an
// empty slice.
func (r *Registry) List(roomID string) []domain.Participant {
	s := r.stripeFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.rooms[roomID])
}

func (r *Registry) Has(roomID, connID string) bool {
	s := r.stripeFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID][connID]
	return ok
}

// RoomsOf returns the rooms connID is currently registered in.
func (r *Registry) RoomsOf(connID string) []string {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	rooms := r.byConn[connID]
	out := make([]string, 0, len(rooms))
	for id := range rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Active maps every live room to its participant count.
func (r *Registry) Active() map[string]int {
	out := make(map[string]int)
	for _, s := range r.stripes {
		s.mu.Lock()
		for id, members := range s.rooms {
			out[id] = len(members)
		}
		s.mu.Unlock()
	}
	return out
}

func (r *Registry) RoomCount() int {
	return len(r.Active())
}

func (r *Registry) ParticipantCount() int {
	n := 0
	for _, c := range r.Active() {
		n += c
	}
	return n
}

func snapshot(members map[string]entry) []domain.Participant {
	entries := make([]entry, 0, len(members))
	for _, e := range members {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]domain.Participant, len(entries))
	for i, e := range entries {
		out[i] = e.p
	}
	return out
}
