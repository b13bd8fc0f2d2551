package clockify

import (
	"maps"
	"sync"
	"time"
)

type cachedProjects struct {
	projects  map[string]Project
	fetchedAt time.Time
}

// ProjectCache holds each workspace's projects keyed by ID for ttl.
type ProjectCache struct {
	mu         sync.RWMutex
	workspaces map[string]cachedProjects
	ttl        time.Duration
	now        func() time.Time
}

func NewProjectCache(ttl time.Duration) *ProjectCache {
	return &ProjectCache{workspaces: map[string]cachedProjects{}, ttl: ttl, now: time.Now}
}

// Get returns a copy of the workspace's cached projects, or nil when there
// are none or they have expired.
func (c *ProjectCache) Get(workspaceID string) map[string]Project {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.workspaces[workspaceID]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return nil
	}
	return maps.Clone(entry.projects)
}

// Set replaces the workspace's projects and returns a copy keyed by ID.
func (c *ProjectCache) Set(workspaceID string, projects []Project) map[string]Project {
	byID := make(map[string]Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.workspaces[workspaceID] = cachedProjects{projects: byID, fetchedAt: c.now()}
	return maps.Clone(byID)
}
