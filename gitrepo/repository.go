// Package gitrepo abstracts the repository host a layer document is bound
// to. Engine code depends only on the Repository interface; the REST client
// is one implementation, the in-memory fake another.
package gitrepo

import (
	"context"
	"fmt"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// FileContent is the decoded payload of one repository file.
type FileContent struct {
	Content []byte
	// SHA identifies the blob the content was read from; required when
	// updating an existing file.
	SHA string
}

// PullRequest describes a review request opened for a staged save.
type PullRequest struct {
	Number int
	URL    string
}

// Repository is the capability surface the engine requires from a repository
// host. RepositoryURI is the "owner/name" slug throughout.
type Repository interface {
	GetFileContent(ctx context.Context, repo, path, branch string) (FileContent, error)
	CreateFile(ctx context.Context, repo, path string, content []byte, branch, message string) error
	UpdateFile(ctx context.Context, repo, path string, content []byte, sha, branch, message string) error
	CreateBranch(ctx context.Context, repo, from, name string) error
	CreatePullRequest(ctx context.Context, repo, title, body, head, base string) (PullRequest, error)
	HasWriteAccessToRepository(ctx context.Context, repo string) (bool, error)
}

// StatusError carries a non-success HTTP status from the repository host.
type StatusError struct {
	Status int
	Repo   string
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("gitrepo: %s/%s: status %d", e.Repo, e.Path, e.Status)
	}
	return fmt.Sprintf("gitrepo: %s: status %d", e.Repo, e.Status)
}

// notFound converts a missing-file response into the engine's typed error so
// the orchestrator can distinguish bootstrap from failure.
func notFound(repo, path, branch string) error {
	return &foundry.NotFoundError{RepositoryURI: repo, FilePath: path, Branch: branch}
}
