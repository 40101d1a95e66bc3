// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repohost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Key layout. Every key is scoped by the "owner/name" repository ref.
const (
	repoPrefix   = "repo:"   // repo:{ref} → localRepo
	refPrefix    = "ref:"    // ref:{ref}:{branch} → commit id
	commitPrefix = "commit:" // commit:{ref}:{id} → localCommit
	blobPrefix   = "blob:"   // blob:{ref}:{id} → raw bytes
	mergePrefix  = "mr:"     // mr:{ref}:{number} → localMerge
	mergeSeq     = "mrseq:"  // mrseq:{ref} → last number
)

const (
	hexAlphabet  = "0123456789abcdef"
	commitIDSize = 40

	// maxTxnAttempts bounds retries of a badger transaction that lost a conflict.
	maxTxnAttempts = 8
)

// LocalConfig configures a [LocalHost].
type LocalConfig struct {
	// Path is the badger directory; empty keeps everything in memory.
	Path         string
	Owner        string
	PagesBaseURL string
}

// LocalHost implements [Host] on an embedded badger database.
//
// Merge requests are merged as soon as they are opened and their branch is
// deleted, the way the auto-merge workflow behaves on a real host.
type LocalHost struct {
	db     *badger.DB
	owner  string
	pages  string
	logger *slog.Logger
	now    func() time.Time
}

type localRepo struct {
	Name          string    `json:"name"`
	DefaultBranch string    `json:"default_branch"`
	Hosting       bool      `json:"hosting"`
	PublicURL     string    `json:"public_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type localCommit struct {
	ID      string            `json:"id"`
	Parents []string          `json:"parents"`
	Message string            `json:"message"`
	Tree    map[string]string `json:"tree"`
	At      time.Time         `json:"at"`
}

type localMerge struct {
	Number      int    `json:"number"`
	Head        string `json:"head"`
	Base        string `json:"base"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Merged      bool   `json:"merged"`
	MergeCommit string `json:"merge_commit"`
}

// NewLocalHost opens (or creates) the badger database described by cfg.
func NewLocalHost(cfg LocalConfig, logger *slog.Logger) (*LocalHost, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("repohost: open badger: %w", err)
	}

	logger.Info("local_repohost_opened", slog.String("path", cfg.Path), slog.Bool("in_memory", cfg.Path == ""))

	return &LocalHost{
		db:     db,
		owner:  cfg.Owner,
		pages:  strings.TrimRight(cfg.PagesBaseURL, "/"),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close releases the database.
func (host *LocalHost) Close() error {
	return host.db.Close()
}

// # Transaction Helpers

// update runs fn in a read-write transaction, retrying lost conflicts.
func (host *LocalHost) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnAttempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = host.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrConflict, err)
}

func getJSON(txn *badger.Txn, key string, target any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, target)
	})
}

func setJSON(txn *badger.Txn, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	value, err := item.ValueCopy(nil)
	return string(value), err
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func refKey(repoRef, branch string) string  { return refPrefix + repoRef + ":" + branch }
func commitKey(repoRef, id string) string   { return commitPrefix + repoRef + ":" + id }
func blobKey(repoRef, id string) string     { return blobPrefix + repoRef + ":" + id }
func mergeKey(repoRef string, n int) string { return mergePrefix + repoRef + ":" + strconv.Itoa(n) }

func requireRepo(txn *badger.Txn, repoRef string) error {
	var repo localRepo
	return getJSON(txn, repoPrefix+repoRef, &repo)
}

// resolve turns a commit id or branch name into a commit.
func resolve(txn *badger.Txn, repoRef, ref string) (localCommit, error) {
	var commit localCommit
	err := getJSON(txn, commitKey(repoRef, ref), &commit)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return commit, err
	}

	id, err := getString(txn, refKey(repoRef, ref))
	if err != nil {
		return localCommit{}, err
	}
	err = getJSON(txn, commitKey(repoRef, id), &commit)
	return commit, err
}

// writeCommit stores a commit over parents with tree, and returns it.
func (host *LocalHost) writeCommit(txn *badger.Txn, repoRef, message string, parents []string, tree map[string]string) (localCommit, error) {
	id, err := gonanoid.Generate(hexAlphabet, commitIDSize)
	if err != nil {
		return localCommit{}, err
	}

	commit := localCommit{ID: id, Parents: parents, Message: message, Tree: tree, At: host.now().UTC()}
	return commit, setJSON(txn, commitKey(repoRef, id), commit)
}

func writeBlob(txn *badger.Txn, repoRef string, content []byte) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return id, txn.Set([]byte(blobKey(repoRef, id)), content)
}

// # Host Implementation

// CreateRepo implements [Host].
func (host *LocalHost) CreateRepo(ctx context.Context, name, description string) (Repo, error) {
	repoRef := host.owner + "/" + name
	repo := Repo{Ref: repoRef, Name: name, DefaultBranch: "main", WebURL: "local://" + repoRef}

	err := host.update(ctx, func(txn *badger.Txn) error {
		found, err := exists(txn, repoPrefix+repoRef)
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists
		}

		readme, err := writeBlob(txn, repoRef, []byte("# "+name+"\n\n"+description+"\n"))
		if err != nil {
			return err
		}
		initial, err := host.writeCommit(txn, repoRef, "Initial commit", nil, map[string]string{"README.md": readme})
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(refKey(repoRef, repo.DefaultBranch)), []byte(initial.ID)); err != nil {
			return err
		}
		return setJSON(txn, repoPrefix+repoRef, localRepo{
			Name:          name,
			DefaultBranch: repo.DefaultBranch,
			CreatedAt:     host.now().UTC(),
		})
	})
	if err != nil {
		return Repo{}, err
	}

	host.logger.DebugContext(ctx, "local_repo_created", slog.String("repo_ref", repoRef))
	return repo, nil
}

// CommitFiles implements [Host].
func (host *LocalHost) CommitFiles(ctx context.Context, repoRef, branch, message string, files []File) (string, error) {
	var committed string

	err := host.update(ctx, func(txn *badger.Txn) error {
		parentID, err := getString(txn, refKey(repoRef, branch))
		if err != nil {
			return err
		}

		var parent localCommit
		if err := getJSON(txn, commitKey(repoRef, parentID), &parent); err != nil {
			return err
		}

		tree := maps.Clone(parent.Tree)
		if tree == nil {
			tree = map[string]string{}
		}
		for _, file := range files {
			id, err := writeBlob(txn, repoRef, file.Content)
			if err != nil {
				return err
			}
			tree[file.Path] = id
		}

		commit, err := host.writeCommit(txn, repoRef, message, []string{parentID}, tree)
		if err != nil {
			return err
		}
		committed = commit.ID
		return txn.Set([]byte(refKey(repoRef, branch)), []byte(commit.ID))
	})
	return committed, err
}

// CreateBranch implements [Host].
func (host *LocalHost) CreateBranch(ctx context.Context, repoRef, branch, from string) error {
	return host.update(ctx, func(txn *badger.Txn) error {
		if err := requireRepo(txn, repoRef); err != nil {
			return err
		}

		taken, err := exists(txn, refKey(repoRef, branch))
		if err != nil {
			return err
		}
		if taken {
			return ErrAlreadyExists
		}

		start, err := resolve(txn, repoRef, from)
		if err != nil {
			return err
		}
		return txn.Set([]byte(refKey(repoRef, branch)), []byte(start.ID))
	})
}

// DeleteBranch implements [Host].
func (host *LocalHost) DeleteBranch(ctx context.Context, repoRef, branch string) error {
	return host.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(refKey(repoRef, branch)))
	})
}

// OpenMergeRequest implements [Host]. The request is merged immediately with a
// merge commit whose tree is base overlaid by head, and head is deleted.
func (host *LocalHost) OpenMergeRequest(ctx context.Context, repoRef, head, base, title, body string) (MergeRequest, error) {
	var opened localMerge

	err := host.update(ctx, func(txn *badger.Txn) error {
		headID, err := getString(txn, refKey(repoRef, head))
		if err != nil {
			return err
		}
		baseID, err := getString(txn, refKey(repoRef, base))
		if err != nil {
			return err
		}

		number := 1
		if last, err := getString(txn, mergeSeq+repoRef); err == nil {
			parsed, _ := strconv.Atoi(last)
			number = parsed + 1
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		var headCommit, baseCommit localCommit
		if err := getJSON(txn, commitKey(repoRef, headID), &headCommit); err != nil {
			return err
		}
		if err := getJSON(txn, commitKey(repoRef, baseID), &baseCommit); err != nil {
			return err
		}

		tree := maps.Clone(baseCommit.Tree)
		if tree == nil {
			tree = map[string]string{}
		}
		maps.Copy(tree, headCommit.Tree)

		merge, err := host.writeCommit(txn, repoRef,
			fmt.Sprintf("Merge pull request #%d from %s", number, head), []string{baseID, headID}, tree)
		if err != nil {
			return err
		}

		opened = localMerge{
			Number: number, Head: head, Base: base, Title: title, Body: body,
			Merged: true, MergeCommit: merge.ID,
		}

		if err := txn.Set([]byte(refKey(repoRef, base)), []byte(merge.ID)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(refKey(repoRef, head))); err != nil {
			return err
		}
		if err := txn.Set([]byte(mergeSeq+repoRef), []byte(strconv.Itoa(number))); err != nil {
			return err
		}
		return setJSON(txn, mergeKey(repoRef, number), opened)
	})
	if err != nil {
		return MergeRequest{}, err
	}

	return MergeRequest{
		Number: opened.Number,
		URL:    fmt.Sprintf("local://%s/pull/%d", repoRef, opened.Number),
		Merged: opened.Merged,
	}, nil
}

// EnableHosting implements [Host].
func (host *LocalHost) EnableHosting(ctx context.Context, repoRef, branch string) (string, error) {
	var publicURL string

	err := host.update(ctx, func(txn *badger.Txn) error {
		var repo localRepo
		if err := getJSON(txn, repoPrefix+repoRef, &repo); err != nil {
			return err
		}
		if found, err := exists(txn, refKey(repoRef, branch)); err != nil || !found {
			return errors.Join(ErrNotFound, err)
		}

		repo.Hosting = true
		repo.PublicURL = host.pages + "/" + repo.Name + "/"
		publicURL = repo.PublicURL
		return setJSON(txn, repoPrefix+repoRef, repo)
	})
	return publicURL, err
}

// ReadFile implements [Host].
func (host *LocalHost) ReadFile(ctx context.Context, repoRef, ref, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := host.db.View(func(txn *badger.Txn) error {
		commit, err := resolve(txn, repoRef, ref)
		if err != nil {
			return err
		}
		blobID, ok := commit.Tree[path]
		if !ok {
			return ErrNotFound
		}
		item, err := txn.Get([]byte(blobKey(repoRef, blobID)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

// # Inspection

// Branches lists the branch names of a repository in order.
func (host *LocalHost) Branches(ctx context.Context, repoRef string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(refPrefix + repoRef + ":")
	var branches []string

	err := host.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix

		iterator := txn.NewIterator(options)
		defer iterator.Close()

		for iterator.Rewind(); iterator.Valid(); iterator.Next() {
			branches = append(branches, strings.TrimPrefix(string(iterator.Item().Key()), string(prefix)))
		}
		return nil
	})
	sort.Strings(branches)
	return branches, err
}

// Hosted reports whether static hosting is enabled for a repository.
func (host *LocalHost) Hosted(ctx context.Context, repoRef string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var repo localRepo
	err := host.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, repoPrefix+repoRef, &repo)
	})
	return repo.Hosting, err
}
