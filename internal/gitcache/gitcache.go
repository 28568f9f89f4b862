// Package gitcache resolves symbolic refs of component repositories against
// a local cache of git mirrors laid out as <cache-dir>/gits/<escaped-url>.
package gitcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/def2cmake/internal/logging"
)

// DefaultSize is the number of resolved refs kept in memory.
const DefaultSize = 1024

// ErrNotCached is returned when the cache holds no mirror of a repository.
var ErrNotCached = errors.New("repository not in cache")

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Option configures a Resolver.
type Option func(*Resolver)

// WithURLExpander maps a repository as written in the definitions to the
// URL the mirror was cloned from, typically by expanding alias prefixes.
func WithURLExpander(fn func(repo string) string) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.expand = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSize sets the capacity of the in-memory LRU. Non-positive sizes are
// ignored.
func WithSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.size = n
		}
	}
}

// Resolver resolves refs against the mirror cache. It is safe for
// concurrent use.
type Resolver struct {
	dir    string
	expand func(string) string
	logger *slog.Logger
	size   int
	cache  *lru.Cache[string, string]
}

// New creates a Resolver over cacheDir.
func New(cacheDir string, opts ...Option) (*Resolver, error) {
	if cacheDir == "" {
		return nil, errors.New("cache directory must not be empty")
	}

	r := &Resolver{
		dir:    cacheDir,
		expand: func(s string) string { return s },
		logger: logging.Discard(),
		size:   DefaultSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	cache, err := lru.New[string, string](r.size)
	if err != nil {
		return nil, fmt.Errorf("creating ref cache: %w", err)
	}

	r.cache = cache

	return r, nil
}

// Escape turns a repository URL into a single directory name: every byte
// outside [A-Za-z0-9_.-] becomes _XX with XX its upper-case hex value.
func Escape(url string) string {
	var b strings.Builder

	for i := 0; i < len(url); i++ {
		c := url[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}

	return b.String()
}

// RepoDir returns the mirror directory for repo.
func (r *Resolver) RepoDir(repo string) string {
	return filepath.Join(r.dir, "gits", Escape(r.expand(repo)))
}

// ResolveRevision returns the commit SHA that ref names in repo. Full
// commit SHAs are returned without touching the cache.
func (r *Resolver) ResolveRevision(repo, ref string) (string, error) {
	if commitPattern.MatchString(ref) {
		return ref, nil
	}

	key := repo + "\x00" + ref
	if sha, ok := r.cache.Get(key); ok {
		return sha, nil
	}

	dir := r.RepoDir(repo)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s (looked in %s)", ErrNotCached, repo, dir)
	}

	mirror, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening mirror %s: %w", dir, err)
	}

	hash, err := mirror.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("resolving %s in %s: %w", ref, repo, err)
	}

	sha := hash.String()
	r.cache.Add(key, sha)

	r.logger.Debug("resolved ref",
		slog.String("repo", repo),
		slog.String("ref", ref),
		slog.String("sha", sha),
	)

	return sha, nil
}

// ResolveRef is ResolveRevision for callers that can carry on with the
// symbolic ref: failures are logged and ref is returned unchanged, which
// CMake accepts as a GIT_TAG.
func (r *Resolver) ResolveRef(ctx context.Context, repo, ref string) string {
	if ctx.Err() != nil {
		return ref
	}

	sha, err := r.ResolveRevision(repo, ref)
	if err != nil {
		r.logger.Warn("keeping symbolic ref",
			slog.String("repo", repo),
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)

		return ref
	}

	return sha
}

// Len returns the number of memoised refs.
func (r *Resolver) Len() int {
	return r.cache.Len()
}
