// Package colors hands out calendar color ids to projects, recycling the
// least recently used one when the palette runs out.
package colors

import (
	"strconv"
	"sync"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/statefile"
)

const (
	// FileName is the cache file inside the state directory.
	FileName = "project_colors.json"

	// NoProject is the color of tasks outside any project (graphite).
	NoProject = "8"

	paletteSize = 11
)

// Assignment is the color held by one project.
type Assignment struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// Cache maps project ids to color ids. Safe for concurrent use.
type Cache struct {
	path     string
	now      func() time.Time
	mu       sync.Mutex
	projects map[string]*Assignment
	dirty    bool
}

// New loads the cache stored at path, or starts an empty one.
func New(path string) (*Cache, error) {
	c := &Cache{path: path, now: time.Now, projects: make(map[string]*Assignment)}
	if err := statefile.Read(path, &c.projects); err != nil {
		return nil, err
	}
	if c.projects == nil {
		c.projects = make(map[string]*Assignment)
	}
	return c, nil
}

// Save writes the cache when it changed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := statefile.Write(c.path, c.projects); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// ColorID returns the color for projectID, assigning one on first use.
func (c *Cache) ColorID(projectID string) string {
	if projectID == "" {
		return NoProject
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.projects[projectID]; ok {
		a.LastUsed = c.now()
		c.dirty = true
		return a.ColorID
	}
	return c.assign(projectID)
}

func (c *Cache) assign(projectID string) string {
	used := make(map[string]bool, len(c.projects))
	for _, a := range c.projects {
		used[a.ColorID] = true
	}

	color := ""
	for i := 1; i <= paletteSize; i++ {
		if id := strconv.Itoa(i); id != NoProject && !used[id] {
			color = id
			break
		}
	}

	if color == "" {
		var oldest string
		for id, a := range c.projects {
			if oldest == "" || a.LastUsed.Before(c.projects[oldest].LastUsed) ||
				(a.LastUsed.Equal(c.projects[oldest].LastUsed) && id < oldest) {
				oldest = id
			}
		}
		color = c.projects[oldest].ColorID
		delete(c.projects, oldest)
	}

	c.projects[projectID] = &Assignment{ColorID: color, LastUsed: c.now()}
	c.dirty = true
	return color
}
