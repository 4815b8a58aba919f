// Package objstore keeps track of the protocol objects that exist on
// one side of a connection.
package objstore

import (
	"deedles.dev/wlwin/internal/set"
	"deedles.dev/wlwin/wire"
)

type Store struct {
	objects map[uint32]wire.Object
	zombies set.Set[uint32]
	nextID  uint32
}

// New returns a store that allocates IDs starting at start.
func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		zombies: make(set.Set[uint32]),
		nextID:  start,
	}
}

// Add adds obj to the store, allocating a new ID for it if it does not
// already have one.
func (s *Store) Add(obj wire.Object) {
	id := obj.ID()
	if id == 0 {
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	s.objects[id] = obj
}

func (s *Store) Get(id uint32) wire.Object {
	return s.objects[id]
}

// Len returns the number of live objects in the store.
func (s *Store) Len() int {
	return len(s.objects)
}

// Delete releases id immediately.
func (s *Store) Delete(id uint32) {
	obj := s.objects[id]
	delete(s.objects, id)
	s.zombies.Delete(id)
	if obj != nil {
		obj.Delete()
	}
}

// Zombify removes the object with the given ID but keeps the ID
// reserved until Delete is called for it. Messages addressed to a
// zombie are silently dropped by Dispatch.
func (s *Store) Zombify(id uint32) {
	obj := s.objects[id]
	delete(s.objects, id)
	s.zombies.Add(id)
	if obj != nil {
		obj.Delete()
	}
}

// IsZombie reports whether id belongs to an object that has been
// destroyed but not yet released.
func (s *Store) IsZombie(id uint32) bool {
	return s.zombies.Has(id)
}

// Dispatch hands msg to the object that sent it.
func (s *Store) Dispatch(msg *wire.MessageBuffer) (wire.Object, error) {
	obj := s.objects[msg.Sender()]
	if obj == nil {
		if s.zombies.Has(msg.Sender()) {
			return nil, nil
		}
		return nil, wire.UnknownSenderIDError{Msg: msg}
	}

	return obj, obj.Dispatch(msg)
}
