package render

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"chromasky/internal/models"
)

// Cache stores the latest rendered map and field JSON per event on
// disk, shared between the scheduler (writer) and the HTTP server
// (reader). Files are overwritten in place on each compute cycle.
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("map cache: create %s: %v", dir, err)
	}
	return &Cache{dir: dir}
}

func (c *Cache) imagePath(event models.Event) string {
	return filepath.Join(c.dir, fmt.Sprintf("map_%s.png", event))
}

func (c *Cache) fieldPath(event models.Event) string {
	return filepath.Join(c.dir, fmt.Sprintf("field_%s.json", event))
}

// SetImage stores the rendered PNG for an event.
func (c *Cache) SetImage(event models.Event, data []byte) error {
	return os.WriteFile(c.imagePath(event), data, 0644)
}

// Image returns the latest rendered PNG for an event.
func (c *Cache) Image(event models.Event) ([]byte, bool) {
	data, err := os.ReadFile(c.imagePath(event))
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetField stores the serialized post-processed field for an event.
func (c *Cache) SetField(event models.Event, data []byte) error {
	return os.WriteFile(c.fieldPath(event), data, 0644)
}

// Field returns the latest serialized field for an event.
func (c *Cache) Field(event models.Event) ([]byte, bool) {
	data, err := os.ReadFile(c.fieldPath(event))
	if err != nil {
		return nil, false
	}
	return data, true
}
