package gateway

import (
	"errors"
	"fmt"
	"sync"

	"chat-gateway/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrUnauthenticated is returned when handshake-time token
	// verification fails. The caller must close the transport.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized is returned by the guard when a privileged event
	// arrives on a connection with no identity. Non-fatal.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for lookups of unknown connection ids.
	ErrNotFound = errors.New("connection not found")

	// ErrAlreadyAuthenticated guards the set-at-most-once identity rule.
	ErrAlreadyAuthenticated = errors.New("connection already authenticated")
)

// TokenVerifier validates a signed session token and returns the identity
// claims it carries. Implementations must be pure functions of the token
// and a fixed key; the registry calls Verify from multiple goroutines.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// Registry tracks every live connection and its identity. It is one of the
// two pieces of shared mutable state in the gateway (the other is the room
// index); every mutation happens under its mutex and performs no I/O.
type Registry struct {
	verifier TokenVerifier

	mu         sync.RWMutex
	conns      map[string]*Conn
	identities map[string]*models.Identity
}

func NewRegistry(verifier TokenVerifier) *Registry {
	return &Registry{
		verifier:   verifier,
		conns:      make(map[string]*Conn),
		identities: make(map[string]*models.Identity),
	}
}

// Register allocates a connection for the transport with a fresh id and no
// identity. It always succeeds.
func (r *Registry) Register(sock Socket) *Conn {
	c := newConn(uuid.NewString(), sock)

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	return c
}

// Authenticate verifies the token and attaches the resulting identity to
// the connection. Identity is set at most once for the lifetime of a
// connection; a second attempt fails with ErrAlreadyAuthenticated.
func (r *Registry) Authenticate(id, token string) (*models.Identity, error) {
	identity, err := r.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; !ok {
		return nil, ErrNotFound
	}
	if _, ok := r.identities[id]; ok {
		return nil, ErrAlreadyAuthenticated
	}

	r.identities[id] = identity
	return identity, nil
}

// Unregister removes the connection and its identity. Idempotent; reports
// whether the connection was still registered.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.conns[id]
	delete(r.conns, id)
	delete(r.identities, id)
	return ok
}

func (r *Registry) Lookup(id string) (*Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Identity returns the connection's identity, or nil while it is anonymous
// or unknown.
func (r *Registry) Identity(id string) *models.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identities[id]
}

// Require is the authentication guard applied before privileged events are
// dispatched. Failure is answered to the sender and never closes the
// connection; that distinction from handshake failure belongs to the
// caller.
func (r *Registry) Require(id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, ErrUnauthorized
	}
	return identity, nil
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
