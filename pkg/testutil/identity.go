package testutil

import (
	"fmt"
	"sync"
)

// StaticIdentity resolves a fixed table of users and groups. root/0 is
// always present.
type StaticIdentity struct {
	mu     sync.RWMutex
	users  map[string]int
	groups map[string]int
}

// NewStaticIdentity creates a resolver that knows root only
func NewStaticIdentity() *StaticIdentity {
	return &StaticIdentity{
		users:  map[string]int{"root": 0},
		groups: map[string]int{"root": 0},
	}
}

// WithUser registers a user name
func (s *StaticIdentity) WithUser(name string, uid int) *StaticIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[name] = uid
	return s
}

// WithGroup registers a group name
func (s *StaticIdentity) WithGroup(name string, gid int) *StaticIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[name] = gid
	return s
}

func (s *StaticIdentity) LookupUser(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.users[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown user %q", name)
}

func (s *StaticIdentity) LookupGroup(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.groups[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown group %q", name)
}
