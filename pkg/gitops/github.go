// Package gitops implements the github toolset: remote operations
// through the GitHub REST API and local operations through the git
// binary. Remote calls are rate-limited client-side so a burst of tool
// calls cannot exhaust the API quota.
package gitops

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v74/github"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
	"golang.org/x/time/rate"
)

// GitHub wraps the REST client. Works without a token too, with the
// much lower anonymous rate limits.
type GitHub struct {
	client        *github.Client
	limiter       *rate.Limiter
	authenticated bool
}

// NewGitHub builds a client. An empty token means anonymous access.
func NewGitHub(token string) *GitHub {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	client.UserAgent = defaults.UserAgent()
	return &GitHub{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(defaults.GitHubRatePerSecond), defaults.GitHubRateBurst),
		authenticated: token != "",
	}
}

// Authenticated reports whether a token was configured.
func (g *GitHub) Authenticated() bool { return g.authenticated }

func (g *GitHub) wait(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, duration.GitHubAPI)
	return ctx, cancel, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaults.GitHubSearchLimit
	}
	if limit > defaults.GitHubSearchMax {
		return defaults.GitHubSearchMax
	}
	return limit
}

// UserSummary is one entry in a user search result.
type UserSummary struct {
	Login string `json:"login"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url"`
}

// SearchUsers searches GitHub accounts matching query.
func (g *GitHub) SearchUsers(ctx context.Context, query string, limit int) ([]UserSummary, int, error) {
	if query == "" {
		return nil, 0, fmt.Errorf("query is required")
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer cancel()

	res, _, err := g.client.Search.Users(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: clampLimit(limit)},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("searching users %q: %w", query, err)
	}

	out := make([]UserSummary, 0, len(res.Users))
	for _, u := range res.Users {
		out = append(out, UserSummary{
			Login: u.GetLogin(),
			Type:  u.GetType(),
			URL:   u.GetHTMLURL(),
		})
	}
	return out, res.GetTotal(), nil
}

// UserProfile is the result of GetUser.
type UserProfile struct {
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Bio         string `json:"bio,omitempty"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"created_at,omitempty"`
	URL         string `json:"url"`
}

// GetUser fetches a single account's profile.
func (g *GitHub) GetUser(ctx context.Context, username string) (*UserProfile, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	u, _, err := g.client.Users.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetching user %q: %w", username, err)
	}

	profile := &UserProfile{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Company:     u.GetCompany(),
		Location:    u.GetLocation(),
		Bio:         u.GetBio(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		URL:         u.GetHTMLURL(),
	}
	if ts := u.GetCreatedAt(); !ts.IsZero() {
		profile.CreatedAt = ts.Format("2006-01-02")
	}
	return profile, nil
}

// RepoSummary is one entry in a repository search result.
type RepoSummary struct {
	FullName    string `json:"full_name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	URL         string `json:"url"`
}

// SearchRepositories searches repositories matching query. sort is
// passed through to the API ("stars", "forks", "updated"; empty means
// best match).
func (g *GitHub) SearchRepositories(ctx context.Context, query string, limit int, sort string) ([]RepoSummary, int, error) {
	if query == "" {
		return nil, 0, fmt.Errorf("query is required")
	}
	switch sort {
	case "", "stars", "forks", "updated":
	default:
		return nil, 0, fmt.Errorf("invalid sort %q (use stars, forks, or updated)", sort)
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer cancel()

	res, _, err := g.client.Search.Repositories(ctx, query, &github.SearchOptions{
		Sort:        sort,
		ListOptions: github.ListOptions{PerPage: clampLimit(limit)},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("searching repositories %q: %w", query, err)
	}

	out := make([]RepoSummary, 0, len(res.Repositories))
	for _, r := range res.Repositories {
		out = append(out, RepoSummary{
			FullName:    r.GetFullName(),
			Description: r.GetDescription(),
			Language:    r.GetLanguage(),
			Stars:       r.GetStargazersCount(),
			Forks:       r.GetForksCount(),
			URL:         r.GetHTMLURL(),
		})
	}
	return out, res.GetTotal(), nil
}

// RepoDetail is the result of GetRepository.
type RepoDetail struct {
	FullName      string `json:"full_name"`
	Description   string `json:"description,omitempty"`
	Language      string `json:"language,omitempty"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	OpenIssues    int    `json:"open_issues"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
	License       string `json:"license,omitempty"`
	Topics        string `json:"topics,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	URL           string `json:"url"`
	CloneURL      string `json:"clone_url"`
}

// GetRepository fetches a repository's metadata.
func (g *GitHub) GetRepository(ctx context.Context, owner, repo string) (*RepoDetail, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	r, _, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", owner, repo, err)
	}

	detail := &RepoDetail{
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		Language:      r.GetLanguage(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		Archived:      r.GetArchived(),
		License:       r.GetLicense().GetSPDXID(),
		URL:           r.GetHTMLURL(),
		CloneURL:      r.GetCloneURL(),
	}
	if topics := r.Topics; len(topics) > 0 {
		detail.Topics = joinTopics(topics)
	}
	if ts := r.GetUpdatedAt(); !ts.IsZero() {
		detail.UpdatedAt = ts.Format("2006-01-02")
	}
	return detail, nil
}

func joinTopics(topics []string) string {
	out := ""
	for i, t := range topics {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}

// ContentEntry describes one file or directory in a repository listing.
type ContentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size,omitempty"`
}

// ListContents lists a directory inside a repository. ref is optional
// (empty means the default branch).
func (g *GitHub) ListContents(ctx context.Context, owner, repo, path, ref string) ([]ContentEntry, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	file, dir, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s/%s: %w", owner, repo, path, err)
	}
	if file != nil {
		return []ContentEntry{{
			Name: file.GetName(),
			Path: file.GetPath(),
			Type: file.GetType(),
			Size: file.GetSize(),
		}}, nil
	}

	out := make([]ContentEntry, 0, len(dir))
	for _, entry := range dir {
		out = append(out, ContentEntry{
			Name: entry.GetName(),
			Path: entry.GetPath(),
			Type: entry.GetType(),
			Size: entry.GetSize(),
		})
	}
	return out, nil
}

// RemoteFile is the result of GetFileContent.
type RemoteFile struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Size      int    `json:"size"`
	Truncated bool   `json:"truncated"`
	SHA       string `json:"sha"`
	URL       string `json:"url"`
}

// GetFileContent fetches one file from a repository, capped so a huge
// blob does not flood the response.
func (g *GitHub) GetFileContent(ctx context.Context, owner, repo, path, ref string) (*RemoteFile, error) {
	if owner == "" || repo == "" || path == "" {
		return nil, fmt.Errorf("owner, repo, and path are required")
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s/%s: %w", owner, repo, path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	truncated := false
	if len(content) > defaults.GitHubFileCap {
		content = content[:defaults.GitHubFileCap]
		truncated = true
	}
	return &RemoteFile{
		Path:      file.GetPath(),
		Content:   content,
		Size:      file.GetSize(),
		Truncated: truncated,
		SHA:       file.GetSHA(),
		URL:       file.GetHTMLURL(),
	}, nil
}

// CommitResult is the result of a file create/update through the API.
type CommitResult struct {
	Path    string `json:"path"`
	SHA     string `json:"commit_sha"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Updated bool   `json:"updated"`
}

func (g *GitHub) checkWriteArgs(owner, repo, path, message string) error {
	if owner == "" || repo == "" || path == "" {
		return fmt.Errorf("owner, repo, and path are required")
	}
	if message == "" {
		return fmt.Errorf("commit message is required")
	}
	if !g.authenticated {
		return fmt.Errorf("writing to GitHub requires a token (set %s)", defaults.EnvGitHubPAT)
	}
	return nil
}

// lookupBlobSHA returns the current blob SHA of path, or "" when the
// file does not exist on the branch.
func (g *GitHub) lookupBlobSHA(ctx context.Context, owner, repo, path, branch string) (string, error) {
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	var getOpts *github.RepositoryContentGetOptions
	if branch != "" {
		getOpts = &github.RepositoryContentGetOptions{Ref: branch}
	}
	existing, _, resp, err := g.client.Repositories.GetContents(ctx, owner, repo, path, getOpts)
	if err != nil {
		// Only a 404 means "not there"; anything else (rate limit, auth,
		// network) must not be mistaken for a missing file.
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("checking %s/%s %s: %w", owner, repo, path, err)
	}
	if existing == nil {
		return "", nil
	}
	return existing.GetSHA(), nil
}

// CreateFile adds a new file to a repository. Refuses to clobber an
// existing file; use UpdateFile for that.
func (g *GitHub) CreateFile(ctx context.Context, owner, repo, path, branch, message, content string) (*CommitResult, error) {
	if err := g.checkWriteArgs(owner, repo, path, message); err != nil {
		return nil, err
	}
	if sha, err := g.lookupBlobSHA(ctx, owner, repo, path, branch); err != nil {
		return nil, err
	} else if sha != "" {
		return nil, fmt.Errorf("%s already exists in %s/%s — use github_update_file", path, owner, repo)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
	}
	if branch != "" {
		opts.Branch = github.Ptr(branch)
	}

	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	res, _, err := g.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s/%s/%s: %w", owner, repo, path, err)
	}
	return &CommitResult{Path: path, SHA: res.GetSHA(), Message: message, URL: res.GetHTMLURL()}, nil
}

// UpdateFile replaces the content of an existing file. The contents
// API requires the current blob SHA, which is looked up first.
func (g *GitHub) UpdateFile(ctx context.Context, owner, repo, path, branch, message, content string) (*CommitResult, error) {
	if err := g.checkWriteArgs(owner, repo, path, message); err != nil {
		return nil, err
	}
	sha, err := g.lookupBlobSHA(ctx, owner, repo, path, branch)
	if err != nil {
		return nil, err
	}
	if sha == "" {
		return nil, fmt.Errorf("%s does not exist in %s/%s — use github_create_file", path, owner, repo)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		SHA:     github.Ptr(sha),
	}
	if branch != "" {
		opts.Branch = github.Ptr(branch)
	}

	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	res, _, err := g.client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s/%s: %w", owner, repo, path, err)
	}
	return &CommitResult{Path: path, SHA: res.GetSHA(), Message: message, URL: res.GetHTMLURL(), Updated: true}, nil
}

// NewRepo is the result of CreateRepository.
type NewRepo struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	URL      string `json:"url"`
	CloneURL string `json:"clone_url"`
}

// CreateRepository creates a repository for the authenticated user.
func (g *GitHub) CreateRepository(ctx context.Context, name, description string, private, autoInit bool) (*NewRepo, error) {
	if name == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	if !g.authenticated {
		return nil, fmt.Errorf("creating repositories requires a token (set %s)", defaults.EnvGitHubPAT)
	}
	ctx, cancel, err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	repo, _, err := g.client.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(description),
		Private:     github.Ptr(private),
		AutoInit:    github.Ptr(autoInit),
	})
	if err != nil {
		return nil, fmt.Errorf("creating repository %q: %w", name, err)
	}

	return &NewRepo{
		FullName: repo.GetFullName(),
		Private:  repo.GetPrivate(),
		URL:      repo.GetHTMLURL(),
		CloneURL: repo.GetCloneURL(),
	}, nil
}
