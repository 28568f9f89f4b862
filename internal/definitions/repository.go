package definitions

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository describes the git worktree holding the definitions.
type Repository struct {
	// Root is the absolute worktree directory.
	Root string

	// URL is the origin remote URL, or a file:// URL of Root when the
	// repository has no origin.
	URL string

	// Head is the commit checked out, empty for a repository without
	// commits.
	Head string
}

// ErrNotInRepository is returned when no git worktree encloses a path.
var ErrNotInRepository = errors.New("definitions must be inside a git repository")

// OpenRepository finds the git worktree enclosing path, searching parent
// directories the way git itself does.
func OpenRepository(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotInRepository, abs)
		}

		return nil, fmt.Errorf("opening git repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree of %s: %w", abs, err)
	}

	root := canonical(wt.Filesystem.Root())

	r := &Repository{Root: root, URL: "file://" + filepath.ToSlash(root)}

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			r.URL = urls[0]
		}
	}

	head, err := repo.Head()

	switch {
	case err == nil:
		r.Head = head.Hash().String()
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	default:
		return nil, fmt.Errorf("reading HEAD of %s: %w", root, err)
	}

	return r, nil
}

// canonical resolves symlinks so that paths below the root can be made
// relative reliably. It falls back to the cleaned input.
func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}

	return filepath.Clean(p)
}
