package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"opschart/pkg/domain"
)

// StoreFactory creates the persistent store backing one workspace. The
// composition root uses it to pick the storage driver and to wire change
// subscribers before the store is handed to the container.
type StoreFactory func(workspaceID string) (domain.PersistentStore, error)

// ErrNoActiveWorkspace is returned by Active when no workspace exists or
// none has been selected.
var ErrNoActiveWorkspace = fmt.Errorf("no active workspace")

// Container manages the set of workspaces and tracks which one is active.
// Every workspace owns an isolated store; operations on the service always
// target the active workspace's store.
type Container struct {
	mu         sync.RWMutex
	factory    StoreFactory
	workspaces map[string]domain.Workspace
	stores     map[string]domain.PersistentStore
	activeID   string
	nowFn      func() time.Time
	logger     Logger
}

// ContainerOption configures optional container dependencies.
type ContainerOption func(*Container)

// WithContainerLogger attaches a structured logger.
func WithContainerLogger(logger Logger) ContainerOption {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContainerClock overrides the container's time source.
func WithContainerClock(clock Clock) ContainerOption {
	return func(c *Container) {
		if clock != nil {
			c.nowFn = clock.Now
		}
	}
}

// NewContainer constructs an empty container using factory for per-workspace
// stores.
func NewContainer(factory StoreFactory, opts ...ContainerOption) *Container {
	c := &Container{
		factory:    factory,
		workspaces: map[string]domain.Workspace{},
		stores:     map[string]domain.PersistentStore{},
		nowFn:      func() time.Time { return time.Now().UTC() },
		logger:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newWorkspaceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// CreateWorkspace provisions a workspace and its backing store. The first
// workspace becomes active automatically.
func (c *Container) CreateWorkspace(name, userID string) (domain.Workspace, error) {
	if name == "" {
		return domain.Workspace{}, domain.ValidationError{Entity: domain.EntityWorkspace, Msg: "name is required"}
	}
	id := newWorkspaceID()
	st, err := c.factory(id)
	if err != nil {
		return domain.Workspace{}, fmt.Errorf("provision workspace store: %w", err)
	}
	now := c.nowFn()
	ws := domain.Workspace{
		Base:   domain.Base{ID: id, CreatedAt: now, UpdatedAt: now},
		Name:   name,
		UserID: userID,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces[id] = ws
	c.stores[id] = st
	if c.activeID == "" {
		c.activeID = id
	}
	c.logger.Info("workspace created", "workspace", id, "name", name, "user", userID)
	return ws, nil
}

// RenameWorkspace updates a workspace's display name.
func (c *Container) RenameWorkspace(id, name string) (domain.Workspace, error) {
	if name == "" {
		return domain.Workspace{}, domain.ValidationError{Entity: domain.EntityWorkspace, Msg: "name is required"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ws, ok := c.workspaces[id]
	if !ok {
		return domain.Workspace{}, domain.NotFoundError{Entity: domain.EntityWorkspace, ID: id}
	}
	ws.Name = name
	ws.UpdatedAt = c.nowFn()
	c.workspaces[id] = ws
	return ws, nil
}

// DeleteWorkspace removes a workspace and its store. Deleting the owner's
// last workspace is rejected so a user is never left without one. When the
// active workspace goes away, another workspace (the owner's if possible)
// becomes active.
func (c *Container) DeleteWorkspace(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws, ok := c.workspaces[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityWorkspace, ID: id}
	}
	remaining := 0
	for _, other := range c.workspaces {
		if other.UserID == ws.UserID && other.ID != id {
			remaining++
		}
	}
	if remaining == 0 {
		return domain.ValidationError{Entity: domain.EntityWorkspace, Msg: "cannot delete the last workspace"}
	}

	delete(c.workspaces, id)
	delete(c.stores, id)
	if c.activeID == id {
		c.activeID = c.fallbackActiveLocked(ws.UserID)
	}
	c.logger.Info("workspace deleted", "workspace", id)
	return nil
}

// fallbackActiveLocked picks a replacement active workspace, preferring one
// owned by userID. Callers hold the write lock.
func (c *Container) fallbackActiveLocked(userID string) string {
	var ids []string
	for id := range c.workspaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if c.workspaces[id].UserID == userID {
			return id
		}
	}
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// ListWorkspaces returns workspaces sorted by name, filtered by owner when
// userID is non-empty.
func (c *Container) ListWorkspaces(userID string) []domain.Workspace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Workspace
	for _, ws := range c.workspaces {
		if userID == "" || ws.UserID == userID {
			out = append(out, ws)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetActive switches the active workspace.
func (c *Container) SetActive(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.workspaces[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityWorkspace, ID: id}
	}
	c.activeID = id
	return nil
}

// Active returns the active workspace id and its store. It implements the
// StoreProvider interface the service consumes.
func (c *Container) Active() (string, domain.PersistentStore, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.activeID == "" {
		return "", nil, ErrNoActiveWorkspace
	}
	st, ok := c.stores[c.activeID]
	if !ok {
		return "", nil, ErrNoActiveWorkspace
	}
	return c.activeID, st, nil
}

// Workspace looks up workspace metadata by id.
func (c *Container) Workspace(id string) (domain.Workspace, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ws, ok := c.workspaces[id]
	return ws, ok
}

// StoreFor returns the store backing workspace id.
func (c *Container) StoreFor(id string) (domain.PersistentStore, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.stores[id]
	return st, ok
}
