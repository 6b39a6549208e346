package ps

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/nickyhof/FlatDB/core"
)

const historyDir = ".git"

// History journals every applied write as a git commit over the base
// directory. It is optional; the flat files stay the source of truth.
type History struct {
	repo *git.Repository
}

type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// NewHistory opens the journal in the base directory, creating it when
// missing. Memory persistence gets an in-memory journal.
func NewHistory(persistence *Persistence) (*History, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	wt := persistence.fs

	if persistence.memory {
		repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(wt))
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		return &History{repo: repo}, nil
	}

	dotGit, err := wt.Chroot(historyDir)
	if err != nil {
		return nil, ioFailure("open history", historyDir, err)
	}

	storage := filesystem.NewStorageWithOptions(
		dotGit,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := wt.Stat(historyDir); statErr != nil {
		if !errors.Is(statErr, fs.ErrNotExist) {
			return nil, ioFailure("stat history", historyDir, statErr)
		}
		repo, err = git.Init(storage, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storage, wt)
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	return &History{repo: repo}, nil
}

// Record stages the whole base directory and commits it.
func (history *History) Record(identity core.Identity, message string) (Transaction, error) {
	wt, err := history.repo.Worktree()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := wt.Add("."); err != nil {
		return Transaction{}, fmt.Errorf("failed to stage changes: %w", err)
	}

	when := time.Now()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  when,
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	return Transaction{
		Id:      hash.String(),
		When:    when,
		Author:  fmt.Sprintf("%s <%s>", identity.Name, identity.Email),
		Message: message,
	}, nil
}

func (history *History) LatestTransaction() Transaction {
	headRef, err := history.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := history.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return transactionFromCommit(commit)
}

// Log returns up to limit transactions, newest first. A limit of zero
// returns the full journal.
func (history *History) Log(limit int) ([]Transaction, error) {
	headRef, err := history.repo.Head()
	if err != nil {
		// No commits yet
		return nil, nil
	}

	cIter, err := history.repo.Log(&git.LogOptions{From: headRef.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		transactions = append(transactions, transactionFromCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return transactions, nil
}

func transactionFromCommit(commit *object.Commit) Transaction {
	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:      commit.Hash.String(),
		When:    commit.Author.When,
		Author:  author,
		Message: commit.Message,
	}
}
