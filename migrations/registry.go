package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	dispatcher "github.com/goliatone/go-dispatcher"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const defaultSourceLabel = "go-dispatcher"

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc hands one dialect tree to the host migrator, typically
// persistence.Client.RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets limits registration to the given dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if next := dedupe(targets); len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		copied := make([]FilesystemSpec, 0, len(filesystems))
		for _, spec := range filesystems {
			dialect := normalizeDialect(spec.Dialect)
			if dialect == "" || spec.FS == nil {
				continue
			}
			copied = append(copied, FilesystemSpec{Dialect: dialect, Path: spec.Path, FS: spec.FS})
		}
		if len(copied) > 0 {
			r.Filesystems = copied
		}
	}
}

// Filesystems resolves the postgres tree and its sqlite alternative. The
// first source overrides the embedded activity log schema.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := dispatcher.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, basePath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: pathJoin(basePath, "sqlite"), FS: sqliteFS},
	}
	for _, spec := range filesystems {
		versions, err := upMigrations(spec.FS)
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", spec.Dialect, spec.Path, err)
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", spec.Dialect, spec.Path)
		}
	}
	return filesystems, nil
}

// Versions lists the embedded up migrations for dialect in apply order.
func Versions(dialect string) ([]string, error) {
	filesystems, err := Filesystems()
	if err != nil {
		return nil, err
	}
	target := normalizeDialect(dialect)
	for _, spec := range filesystems {
		if spec.Dialect == target {
			return upMigrations(spec.FS)
		}
	}
	return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       defaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	switch {
	case len(reg.ValidationTargets) == 0:
		return reg, fmt.Errorf("migrations: validation targets are required")
	case strings.TrimSpace(reg.SourceLabel) == "":
		return reg, fmt.Errorf("migrations: source label is required")
	case len(reg.Filesystems) == 0:
		return reg, fmt.Errorf("migrations: filesystems are required")
	case registerFn == nil:
		return reg, fmt.Errorf("migrations: register function is required")
	}

	for _, spec := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, spec.Dialect) {
			continue
		}
		if spec.FS == nil {
			return reg, fmt.Errorf("migrations: filesystem for %s is nil", spec.Dialect)
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	sub, err := fs.Sub(root, "data/sql/migrations")
	if err == nil {
		if versions, globErr := upMigrations(sub); globErr == nil && len(versions) > 0 {
			return sub, "data/sql/migrations", nil
		}
	}
	if versions, globErr := upMigrations(root); globErr == nil && len(versions) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: data/sql/migrations not found")
}

func upMigrations(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

func normalizeDialect(dialect string) string {
	return strings.TrimSpace(strings.ToLower(dialect))
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		normalized := normalizeDialect(value)
		if normalized == "" || slices.Contains(out, normalized) {
			continue
		}
		out = append(out, normalized)
	}
	return out
}

func pathJoin(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
