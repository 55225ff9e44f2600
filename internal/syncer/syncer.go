// Package syncer reconciles configured content sources with the store:
// new items become New cards, vanished items take their cards with them.
package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fluentvoice/synapse/internal/content"
	"github.com/fluentvoice/synapse/internal/gitsource"
	"github.com/fluentvoice/synapse/internal/srs"
	"github.com/fluentvoice/synapse/internal/storage"
)

// Source type names as stored in the sources table.
const (
	TypeLocal = "local"
	TypeGit   = "git"
)

// Options controls a sync run.
type Options struct {
	// ReposDir is where git sources are mirrored locally.
	ReposDir string
	// Learner is whose deck newly discovered items are seeded into.
	Learner string
	// EaseStart is the ease assigned to seeded cards.
	EaseStart float64
	// Now stamps seeded cards and scan times.
	Now time.Time
}

// DetectType classifies a source path: anything that looks like a git URL
// is a git source, everything else a local directory.
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return TypeGit
	}
	return TypeLocal
}

// Run iterates over all sources and reconciles each one.
func Run(db *storage.DB, opts Options) error {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured; add one with --add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(opts.ReposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanPath := source.Path
		if source.Type == TypeGit {
			localRepoPath, err := gitURLToLocalPath(opts.ReposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localRepoPath); err != nil {
				slog.Error("git sync failed", "url", source.Path, "error", err)
				continue
			}
			scanPath = localRepoPath
		}

		reconcileSource(db, source, scanPath, opts)
	}
	slog.Info("sync complete")
	return nil
}

// reconcileSource walks one source directory, upserting every item it holds
// and removing items (and their cards) that no deck file mentions anymore.
func reconcileSource(db *storage.DB, source storage.Source, scanPath string, opts Options) {
	foundHashes := make(map[string]bool)
	var parsed, seeded int
	var parseErrors []error

	walkErr := filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}

		items, parseErr := content.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, parseErr)
			return nil
		}
		for _, item := range items {
			parsed++
			foundHashes[item.Hash] = true

			if err := db.UpsertItem(item, source.ID); err != nil {
				parseErrors = append(parseErrors, err)
				continue
			}

			_, getErr := db.GetCard(opts.Learner, item.Hash)
			if getErr == nil {
				continue
			}
			if !errors.Is(getErr, storage.ErrNotFound) {
				parseErrors = append(parseErrors, getErr)
				continue
			}

			card := srs.NewCard(item.Hash, item.Hash, 0, opts.Now)
			if opts.EaseStart > 0 {
				card.Ease = opts.EaseStart
			}
			if insertErr := db.InsertCard(opts.Learner, card); insertErr != nil {
				parseErrors = append(parseErrors, insertErr)
				continue
			}
			seeded++
		}
		return nil
	})
	if walkErr != nil {
		slog.Error("error walking source", "path", scanPath, "error", walkErr)
		return
	}

	known, err := db.ListItemHashesBySource(source.ID)
	if err != nil {
		slog.Error("error listing items for source", "source_id", source.ID, "error", err)
		return
	}

	var orphaned int
	for _, hash := range known {
		if foundHashes[hash] {
			continue
		}
		orphaned++
		slog.Info("orphaned item, deleting", "hash", hash)
		if err := db.DeleteCardEverywhere(hash); err != nil {
			slog.Warn("failed to delete orphaned card", "hash", hash, "error", err)
		}
		if err := db.DeleteItem(hash); err != nil {
			slog.Warn("failed to delete orphaned item", "hash", hash, "error", err)
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID, opts.Now); err != nil {
		slog.Warn("failed to update last scanned", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_items", parsed,
		"seeded_cards", seeded,
		"orphaned_deleted", orphaned,
		"errors", len(parseErrors),
	)
	for _, e := range parseErrors {
		slog.Warn("sync issue", "error", e)
	}
}

// gitURLToLocalPath maps a git URL onto a stable mirror directory under
// baseDir, handling both https and scp-style git@host:path URLs.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
