package storage

import (
	"context"

	"labz/internal/gallery"
	"labz/internal/project"
)

// Store combines template-cache and project-store capabilities.
type Store interface {
	TemplateStore
	ProjectStore
	Close() error
}

// TemplateStore defines operations for the parsed template cache.
type TemplateStore interface {
	// SaveTemplate upserts one template keyed by contract name.
	SaveTemplate(ctx context.Context, info *gallery.TemplateInfo) error

	// SaveTemplates persists a whole gallery scan transactionally.
	SaveTemplates(ctx context.Context, infos []*gallery.TemplateInfo) error

	// GetTemplate retrieves a cached template by name.
	GetTemplate(ctx context.Context, name string) (*gallery.TemplateInfo, error)

	// ListTemplates retrieves all cached templates.
	ListTemplates(ctx context.Context) ([]*gallery.TemplateInfo, error)

	// TemplateChanged reports whether a source differs from the cached hash.
	TemplateChanged(ctx context.Context, name, source string) (bool, error)
}

// ProjectStore defines operations for saved composer projects.
type ProjectStore interface {
	// SaveProject upserts a project state snapshot.
	SaveProject(ctx context.Context, id string, state project.State) error

	// LoadProject restores a saved project state.
	LoadProject(ctx context.Context, id string) (project.State, error)

	// ListProjects lists saved projects, most recent first.
	ListProjects(ctx context.Context) ([]ProjectSummary, error)

	// DeleteProject removes a saved project.
	DeleteProject(ctx context.Context, id string) error
}
