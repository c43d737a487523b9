// Package event turns raw archive records into typed events.
//
// Decode is pure and total: every record yields an Event, unknown types
// decode as KindGeneric, and missing nested fields surface as zero values
// or nil pointers instead of failures.
package event

import "time"

// Kind is the closed set of event variants
type Kind uint8

const (
	KindGeneric Kind = iota
	KindPush
	KindCommitComment
	KindPullRequest
	KindPullRequestReviewComment
	KindIssues
	KindIssueComment
	KindCreate
	KindFork
	KindPublic
	KindWatch
	KindDelete
	KindRelease
	KindMember
	KindGollum
)

var kindNames = [...]string{
	KindGeneric:                  "Generic",
	KindPush:                     "PushEvent",
	KindCommitComment:            "CommitCommentEvent",
	KindPullRequest:              "PullRequestEvent",
	KindPullRequestReviewComment: "PullRequestReviewCommentEvent",
	KindIssues:                   "IssuesEvent",
	KindIssueComment:             "IssueCommentEvent",
	KindCreate:                   "CreateEvent",
	KindFork:                     "ForkEvent",
	KindPublic:                   "PublicEvent",
	KindWatch:                    "WatchEvent",
	KindDelete:                   "DeleteEvent",
	KindRelease:                  "ReleaseEvent",
	KindMember:                   "MemberEvent",
	KindGollum:                   "GollumEvent",
}

// String returns the archive type name of the kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindGeneric]
}

// Event is the typed view of one record. Payload holds the kind specific part
// (nil for Generic and Public); Raw is the record it was decoded from.
type Event struct {
	Kind      Kind
	ID        string
	Type      string
	Public    bool
	CreatedAt time.Time
	Actor     *User
	Org       *User
	Repo      *Repository
	Payload   any
	Raw       map[string]any
}

// Payload variants

type Push struct {
	PushID       int64
	Size         int64
	DistinctSize int64
	Ref          string
	Head         string
	Before       string
	Commits      []Commit
}

type CommitComment struct {
	Comment *Comment
}

type PullRequestPayload struct {
	Action      string
	Number      int64
	PullRequest *PullRequest
}

type PullRequestReviewComment struct {
	Action      string
	Number      int64
	PullRequest *PullRequest
	Comment     *Comment
}

type Issues struct {
	Action string
	Issue  *Issue
}

type IssueComment struct {
	Action  string
	Issue   *Issue
	Comment *Comment
}

type Create struct {
	Ref          string
	RefType      string
	MasterBranch string
	Description  string
	PusherType   string
}

type Fork struct {
	Forkee *Forkee
}

type Watch struct {
	Action string
}

type Delete struct {
	Ref        string
	RefType    string
	PusherType string
}

type ReleasePayload struct {
	Action  string
	Release *Release
}

type Member struct {
	Action string
	Member *User
}

type Gollum struct {
	Pages []Page
}

// variant is one row of the dispatch table
type variant struct {
	kind  Kind
	fits  func(map[string]any) bool
	build func(payload map[string]any) any
}

func typeIs(name string) func(map[string]any) bool {
	return func(r map[string]any) bool { return str(r, "type") == name }
}

// variants is consulted in order; the first row that fits wins
var variants = []variant{
	{KindPush, typeIs("PushEvent"), func(p map[string]any) any {
		return &Push{
			PushID:       num(p, "push_id"),
			Size:         num(p, "size"),
			DistinctSize: num(p, "distinct_size"),
			Ref:          str(p, "ref"),
			Head:         str(p, "head"),
			Before:       str(p, "before"),
			Commits:      commitsOf(arr(p, "commits")),
		}
	}},
	{KindCommitComment, typeIs("CommitCommentEvent"), func(p map[string]any) any {
		return &CommitComment{Comment: commentOf(obj(p, "comment"))}
	}},
	{KindPullRequest, typeIs("PullRequestEvent"), func(p map[string]any) any {
		return &PullRequestPayload{
			Action:      str(p, "action"),
			Number:      num(p, "number"),
			PullRequest: pullRequestOf(obj(p, "pull_request")),
		}
	}},
	{KindPullRequestReviewComment, typeIs("PullRequestReviewCommentEvent"), func(p map[string]any) any {
		return &PullRequestReviewComment{
			Action:      str(p, "action"),
			Number:      num(p, "number"),
			PullRequest: pullRequestOf(obj(p, "pull_request")),
			Comment:     commentOf(obj(p, "comment")),
		}
	}},
	{KindIssues, typeIs("IssuesEvent"), func(p map[string]any) any {
		return &Issues{Action: str(p, "action"), Issue: issueOf(obj(p, "issue"))}
	}},
	{KindIssueComment, typeIs("IssueCommentEvent"), func(p map[string]any) any {
		return &IssueComment{
			Action:  str(p, "action"),
			Issue:   issueOf(obj(p, "issue")),
			Comment: commentOf(obj(p, "comment")),
		}
	}},
	{KindCreate, typeIs("CreateEvent"), func(p map[string]any) any {
		return &Create{
			Ref:          str(p, "ref"),
			RefType:      str(p, "ref_type"),
			MasterBranch: str(p, "master_branch"),
			Description:  str(p, "description"),
			PusherType:   str(p, "pusher_type"),
		}
	}},
	{KindFork, typeIs("ForkEvent"), func(p map[string]any) any {
		return &Fork{Forkee: forkeeOf(obj(p, "forkee"))}
	}},
	{KindPublic, typeIs("PublicEvent"), func(map[string]any) any { return nil }},
	{KindWatch, typeIs("WatchEvent"), func(p map[string]any) any {
		return &Watch{Action: str(p, "action")}
	}},
	{KindDelete, typeIs("DeleteEvent"), func(p map[string]any) any {
		return &Delete{Ref: str(p, "ref"), RefType: str(p, "ref_type"), PusherType: str(p, "pusher_type")}
	}},
	{KindRelease, typeIs("ReleaseEvent"), func(p map[string]any) any {
		return &ReleasePayload{Action: str(p, "action"), Release: releaseOf(obj(p, "release"))}
	}},
	{KindMember, typeIs("MemberEvent"), func(p map[string]any) any {
		return &Member{Action: str(p, "action"), Member: userOf(obj(p, "member"))}
	}},
	{KindGollum, typeIs("GollumEvent"), func(p map[string]any) any {
		return &Gollum{Pages: pagesOf(arr(p, "pages"))}
	}},
}

// Decode builds the typed Event for record; it never fails
func Decode(record map[string]any) Event {
	ev := Event{
		Kind:      KindGeneric,
		ID:        id(record, "id"),
		Type:      str(record, "type"),
		Public:    boolean(record, "public"),
		CreatedAt: ts(record, "created_at"),
		Actor:     userOf(obj(record, "actor")),
		Org:       userOf(obj(record, "org")),
		Raw:       record,
	}
	if r := obj(record, "repo"); r != nil {
		ev.Repo = &Repository{ID: num(r, "id"), Name: str(r, "name"), URL: str(r, "url")}
	}
	for _, v := range variants {
		if v.fits(record) {
			ev.Kind = v.kind
			ev.Payload = v.build(obj(record, "payload"))
			break
		}
	}
	return ev
}
