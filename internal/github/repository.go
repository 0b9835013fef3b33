// Package github manages the hosted repositories that fixes are pushed to.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v72/github"
)

// RepositoryOptions describes a repository to create
type RepositoryOptions struct {
	Name        string
	Description string
	Private     bool
}

// RepositoryService handles GitHub repository operations
type RepositoryService interface {
	// EnsureRepository creates the repository under the authenticated user. A repository that already exists counts
	// as success; created reports which case occurred
	EnsureRepository(ctx context.Context, opts RepositoryOptions) (created bool, err error)
}

// repositoryService implements RepositoryService using GitHub API
type repositoryService struct {
	client *github.Client
}

// NewRepositoryService creates a new RepositoryService
func NewRepositoryService(client *github.Client) RepositoryService {
	return &repositoryService{
		client: client,
	}
}

func (rs *repositoryService) EnsureRepository(ctx context.Context, opts RepositoryOptions) (bool, error) {
	if opts.Name == "" {
		return false, fmt.Errorf("repository name is required")
	}
	repo := &github.Repository{
		Name:        github.Ptr(opts.Name),
		Private:     github.Ptr(opts.Private),
		Description: github.Ptr(opts.Description),
	}

	// An empty org creates the repository for the authenticated user
	_, resp, err := rs.client.Repositories.Create(ctx, "", repo)
	if err == nil {
		return true, nil
	}
	if isAlreadyExists(resp, err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to create repository %q: %w", opts.Name, err)
}

func isAlreadyExists(resp *github.Response, err error) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		var errResp *github.ErrorResponse
		if !errors.As(err, &errResp) {
			return false
		}
		if strings.Contains(strings.ToLower(errResp.Message), "already exists") {
			return true
		}
		for _, e := range errResp.Errors {
			if strings.Contains(strings.ToLower(e.Message), "already exists") {
				return true
			}
		}
	}
	return false
}

// AuthenticatedRemoteURL returns an https clone URL that carries token as credentials
func AuthenticatedRemoteURL(token, owner, repo string) string {
	u := url.URL{
		Scheme: "https",
		User:   url.User(token),
		Host:   "github.com",
		Path:   fmt.Sprintf("/%s/%s.git", owner, repo),
	}
	return u.String()
}
