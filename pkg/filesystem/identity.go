package filesystem

import (
	"os/user"
	"strconv"
	"sync"

	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// hostIdentity resolves names through the host user database, caching
// every answer for the lifetime of a run.
type hostIdentity struct {
	mu     sync.Mutex
	users  map[string]lookupResult
	groups map[string]lookupResult
}

type lookupResult struct {
	id  int
	err error
}

// NewHostIdentity creates a types.IdentityResolver backed by os/user
func NewHostIdentity() types.IdentityResolver {
	return &hostIdentity{
		users:  make(map[string]lookupResult),
		groups: make(map[string]lookupResult),
	}
}

func (h *hostIdentity) LookupUser(name string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.users[name]; ok {
		return r.id, r.err
	}
	var r lookupResult
	u, err := user.Lookup(name)
	if err != nil {
		r.err = err
	} else {
		r.id, r.err = strconv.Atoi(u.Uid)
	}
	h.users[name] = r
	return r.id, r.err
}

func (h *hostIdentity) LookupGroup(name string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.groups[name]; ok {
		return r.id, r.err
	}
	var r lookupResult
	g, err := user.LookupGroup(name)
	if err != nil {
		r.err = err
	} else {
		r.id, r.err = strconv.Atoi(g.Gid)
	}
	h.groups[name] = r
	return r.id, r.err
}
