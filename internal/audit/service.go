// Package audit keeps a git-backed trail of reconciliation runs. Each run
// commits the full result snapshot, so any past state is recoverable from
// the commit history.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"opsboard/api/internal/reconcile"
)

const snapshotFile = "snapshot.json"

// RunInfo describes one recorded reconciliation run.
type RunInfo struct {
	Hash       string    `json:"hash"`
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Service owns a single local repository. Commits are serialized by a
// mutex: scheduled runs and interactive runs may overlap.
type Service struct {
	dir string
	mu  sync.Mutex
}

// New creates the audit service rooted at dir.
func New(dir string) *Service {
	return &Service{dir: dir}
}

// RecordRun writes the result snapshot and commits it. The first call
// initializes the repository.
func (s *Service) RecordRun(result reconcile.Result, recordedAt time.Time) (RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.openOrInit()
	if err != nil {
		return RunInfo{}, err
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return RunInfo{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return RunInfo{}, fmt.Errorf("write snapshot: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return RunInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return RunInfo{}, fmt.Errorf("git add snapshot: %w", err)
	}

	message := fmt.Sprintf("Reconciliation run %s: %d discrepancies",
		recordedAt.UTC().Format(time.RFC3339), len(result.Discrepancies))
	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "opsboard",
			Email: "opsboard@local",
			When:  recordedAt,
		},
	})
	if err != nil {
		return RunInfo{}, fmt.Errorf("commit snapshot: %w", err)
	}

	return RunInfo{Hash: hash.String(), Message: message, RecordedAt: recordedAt}, nil
}

// ListRuns returns recorded runs, newest first, up to limit (0 = all).
func (s *Service) ListRuns(limit int) ([]RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []RunInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []RunInfo{}, nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	defer iter.Close()

	runs := make([]RunInfo, 0)
	err = iter.ForEach(func(c *object.Commit) error {
		runs = append(runs, RunInfo{
			Hash:       c.Hash.String(),
			Message:    c.Message,
			RecordedAt: c.Author.When,
		})
		if limit > 0 && len(runs) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return runs, nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) openOrInit() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open audit repo: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	repo, err = git.PlainInit(s.dir, false)
	if err != nil {
		return nil, fmt.Errorf("init audit repo: %w", err)
	}
	return repo, nil
}
