// Package gitsource keeps local mirrors of git-hosted deck repositories.
package gitsource

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
)

// Sync clones the repository at url into localPath if no mirror exists yet,
// or pulls the latest changes if it does.
func Sync(url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning deck repository", "url", url, "path", localPath)
		_, err := git.PlainClone(localPath, false, &git.CloneOptions{
			URL:      url,
			Progress: io.Discard,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
	case err == nil:
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.Pull(&git.PullOptions{
			RemoteName: "origin",
			Progress:   io.Discard,
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		slog.Info("deck repository up to date", "path", localPath)
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}
