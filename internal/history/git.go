package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/snapshot"
)

const (
	commitAuthorName  = "config-sentinel"
	commitAuthorEmail = "config-sentinel@localhost"
)

// GitRecorder commits snapshots into a git repository rooted at the store
// directory. Commits are serialized through a mutex: the working tree and
// index are shared state, so at most one commit may be in flight.
type GitRecorder struct {
	repo   *git.Repository
	root   string
	logger zerolog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewGitRecorder opens the repository at root, initializing one if absent.
func NewGitRecorder(root string, logger zerolog.Logger) (*GitRecorder, error) {
	repo, err := git.PlainOpen(root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Info().Str("root", root).Msg("initializing git repository")
		repo, err = git.PlainInit(root, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", root, err)
	}

	return &GitRecorder{
		repo:   repo,
		root:   root,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Record implements Recorder by staging and committing the snapshot file.
func (r *GitRecorder) Record(ctx context.Context, host string, file snapshot.File) (CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", &RecordError{Host: host, Err: err}
	}

	relPath, err := filepath.Rel(r.root, file.Path)
	if err != nil {
		return "", &RecordError{Host: host, Err: err}
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", &RecordError{Host: host, Err: err}
	}

	if _, err := worktree.Add(filepath.ToSlash(relPath)); err != nil {
		return "", &RecordError{Host: host, Err: err}
	}

	// Filenames are unique per capture, so every record produces a commit.
	hash, err := worktree.Commit(fmt.Sprintf("Backup %s - %s", host, file.Name), &git.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  r.now(),
		},
	})
	if err != nil {
		return "", &RecordError{Host: host, Err: err}
	}

	r.logger.Debug().
		Str("host", host).
		Str("file", file.Name).
		Str("commit", hash.String()).
		Msg("snapshot committed")

	return CommitID(hash.String()), nil
}
