package naming

import (
	"fmt"
	"log/slog"
)

// CollisionResolver tracks registered struct names and resolves collisions
// by applying numeric suffixes when duplicates are detected.
type CollisionResolver struct {
	seen   map[string]string // struct name → source table
	logger *slog.Logger
}

// NewCollisionResolver creates a new collision resolver.
func NewCollisionResolver(logger *slog.Logger) *CollisionResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollisionResolver{
		seen:   make(map[string]string),
		logger: logger,
	}
}

// Register registers a struct name and returns the resolved name.
// If a collision occurs, applies a numeric suffix and logs a warning.
func (c *CollisionResolver) Register(structName, tableName string) string {
	if _, exists := c.seen[structName]; !exists {
		c.seen[structName] = tableName
		return structName
	}

	c.logger.Warn("struct name collision detected, applying suffix",
		slog.String("name", structName),
		slog.String("existing_table", c.seen[structName]),
		slog.String("new_table", tableName),
	)

	for i := 2; ; i++ {
		suffixed := fmt.Sprintf("%s%d", structName, i)
		if _, exists := c.seen[suffixed]; !exists {
			c.seen[suffixed] = tableName
			return suffixed
		}
	}
}
