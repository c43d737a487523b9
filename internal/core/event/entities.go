package event

import "time"

// User is an actor, author or member
type User struct {
	ID         int64
	Login      string
	Type       string
	URL        string
	AvatarURL  string
	GravatarID string
	SiteAdmin  bool
}

func userOf(m map[string]any) *User {
	if m == nil {
		return nil
	}
	return &User{
		ID:         num(m, "id"),
		Login:      str(m, "login"),
		Type:       str(m, "type"),
		URL:        str(m, "url"),
		AvatarURL:  str(m, "avatar_url"),
		GravatarID: str(m, "gravatar_id"),
		SiteAdmin:  boolean(m, "site_admin"),
	}
}

// Repository is the repo an event happened in
type Repository struct {
	ID   int64
	Name string
	URL  string
}

// CommitAuthor is the git author of a pushed commit
type CommitAuthor struct {
	Email string
	Name  string
}

// Commit is one commit of a push
type Commit struct {
	SHA      string
	Author   CommitAuthor
	Message  string
	Distinct bool
	URL      string
}

func commitsOf(items []any) []Commit {
	if len(items) == 0 {
		return nil
	}
	out := make([]Commit, 0, len(items))
	for _, it := range items {
		m, _ := it.(map[string]any)
		if m == nil {
			continue
		}
		a := obj(m, "author")
		out = append(out, Commit{
			SHA:      str(m, "sha"),
			Author:   CommitAuthor{Email: str(a, "email"), Name: str(a, "name")},
			Message:  str(m, "message"),
			Distinct: boolean(m, "distinct"),
			URL:      str(m, "url"),
		})
	}
	return out
}

// Issue covers fields shared by issues and pull requests
type Issue struct {
	ID        int64
	Number    int64
	URL       string
	State     string
	Locked    bool
	Title     string
	Body      string
	User      *User
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  time.Time
}

func issueOf(m map[string]any) *Issue {
	if m == nil {
		return nil
	}
	var labels []string
	for _, l := range arr(m, "labels") {
		if lm, ok := l.(map[string]any); ok {
			labels = append(labels, str(lm, "name"))
		}
	}
	return &Issue{
		ID:        num(m, "id"),
		Number:    num(m, "number"),
		URL:       str(m, "url"),
		State:     str(m, "state"),
		Locked:    boolean(m, "locked"),
		Title:     str(m, "title"),
		Body:      str(m, "body"),
		User:      userOf(obj(m, "user")),
		Labels:    labels,
		CreatedAt: ts(m, "created_at"),
		UpdatedAt: ts(m, "updated_at"),
		ClosedAt:  ts(m, "closed_at"),
	}
}

// PullRequest is an issue with merge state
type PullRequest struct {
	Issue
	MergedAt       time.Time
	MergeCommitSHA string
	Merged         bool
	Mergeable      bool
	MergeableState string
	MergedBy       *User
	Comments       int64
	ReviewComments int64
	Commits        int64
	Additions      int64
	Deletions      int64
	ChangedFiles   int64
	HeadRef        string
	BaseRef        string
}

func pullRequestOf(m map[string]any) *PullRequest {
	is := issueOf(m)
	if is == nil {
		return nil
	}
	return &PullRequest{
		Issue:          *is,
		MergedAt:       ts(m, "merged_at"),
		MergeCommitSHA: str(m, "merge_commit_sha"),
		Merged:         boolean(m, "merged"),
		Mergeable:      boolean(m, "mergeable"),
		MergeableState: str(m, "mergeable_state"),
		MergedBy:       userOf(obj(m, "merged_by")),
		Comments:       num(m, "comments"),
		ReviewComments: num(m, "review_comments"),
		Commits:        num(m, "commits"),
		Additions:      num(m, "additions"),
		Deletions:      num(m, "deletions"),
		ChangedFiles:   num(m, "changed_files"),
		HeadRef:        str(obj(m, "head"), "ref"),
		BaseRef:        str(obj(m, "base"), "ref"),
	}
}

// Comment is an issue, commit or review comment
type Comment struct {
	ID        int64
	URL       string
	User      *User
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time

	// commit and review comments only
	Path             string
	Position         int64
	Line             int64
	CommitID         string
	OriginalCommitID string
	DiffHunk         string
}

func commentOf(m map[string]any) *Comment {
	if m == nil {
		return nil
	}
	u := obj(m, "user")
	if u == nil {
		u = obj(m, "author")
	}
	return &Comment{
		ID:               num(m, "id"),
		URL:              str(m, "url"),
		User:             userOf(u),
		Body:             str(m, "body"),
		CreatedAt:        ts(m, "created_at"),
		UpdatedAt:        ts(m, "updated_at"),
		Path:             str(m, "path"),
		Position:         num(m, "position"),
		Line:             num(m, "line"),
		CommitID:         str(m, "commit_id"),
		OriginalCommitID: str(m, "original_commit_id"),
		DiffHunk:         str(m, "diff_hunk"),
	}
}

// Release is a published tag
type Release struct {
	ID              int64
	URL             string
	TagName         string
	TargetCommitish string
	Name            string
	Body            string
	Draft           bool
	Prerelease      bool
	Author          *User
	CreatedAt       time.Time
	PublishedAt     time.Time
	TarballURL      string
	ZipballURL      string
}

func releaseOf(m map[string]any) *Release {
	if m == nil {
		return nil
	}
	return &Release{
		ID:              num(m, "id"),
		URL:             str(m, "url"),
		TagName:         str(m, "tag_name"),
		TargetCommitish: str(m, "target_commitish"),
		Name:            str(m, "name"),
		Body:            str(m, "body"),
		Draft:           boolean(m, "draft"),
		Prerelease:      boolean(m, "prerelease"),
		Author:          userOf(obj(m, "author")),
		CreatedAt:       ts(m, "created_at"),
		PublishedAt:     ts(m, "published_at"),
		TarballURL:      str(m, "tarball_url"),
		ZipballURL:      str(m, "zipball_url"),
	}
}

// Forkee is the repository created by a fork
type Forkee struct {
	ID              int64
	Name            string
	FullName        string
	Owner           *User
	Private         bool
	Description     string
	Homepage        string
	Language        string
	DefaultBranch   string
	Size            int64
	StargazersCount int64
	WatchersCount   int64
	ForksCount      int64
	OpenIssuesCount int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PushedAt        time.Time
	CloneURL        string
}

func forkeeOf(m map[string]any) *Forkee {
	if m == nil {
		return nil
	}
	return &Forkee{
		ID:              num(m, "id"),
		Name:            str(m, "name"),
		FullName:        str(m, "full_name"),
		Owner:           userOf(obj(m, "owner")),
		Private:         boolean(m, "private"),
		Description:     str(m, "description"),
		Homepage:        str(m, "homepage"),
		Language:        str(m, "language"),
		DefaultBranch:   str(m, "default_branch"),
		Size:            num(m, "size"),
		StargazersCount: num(m, "stargazers_count"),
		WatchersCount:   num(m, "watchers_count"),
		ForksCount:      num(m, "forks_count"),
		OpenIssuesCount: num(m, "open_issues_count"),
		CreatedAt:       ts(m, "created_at"),
		UpdatedAt:       ts(m, "updated_at"),
		PushedAt:        ts(m, "pushed_at"),
		CloneURL:        str(m, "clone_url"),
	}
}

// Page is one wiki page touched by a Gollum event
type Page struct {
	Name    string
	Title   string
	Summary string
	Action  string
	SHA     string
}

func pagesOf(items []any) []Page {
	if len(items) == 0 {
		return nil
	}
	out := make([]Page, 0, len(items))
	for _, it := range items {
		m, _ := it.(map[string]any)
		if m == nil {
			continue
		}
		out = append(out, Page{
			Name:    str(m, "page_name"),
			Title:   str(m, "title"),
			Summary: str(m, "summary"),
			Action:  str(m, "action"),
			SHA:     str(m, "sha"),
		})
	}
	return out
}
