package store

import "time"

// Moderation modes for a comment. Only visible comments are served today;
// pending and removed exist so a moderation queue can be added without a
// schema change.
const (
	ModeVisible = 0
	ModePending = 1
	ModeRemoved = 2
)

// Thread binds a blog post's path to its set of comments. Created lazily on
// the first comment for an unseen uri, never deleted.
type Thread struct {
	ID    int64
	URI   string
	Title *string
}

type Comment struct {
	ID         int64
	ThreadID   int64
	Parent     *int64
	Created    time.Time
	Modified   *time.Time
	Mode       int
	RemoteAddr *string
	Text       string
	Author     *string
	Email      *string
	Website    *string
	Hash       string
	Likes      int
	Dislikes   int
	Voters     []string
}

// NewComment carries the caller-supplied fields of a comment insert. The
// parent may be rewritten by the nesting-limit check before the row lands.
type NewComment struct {
	ThreadID   int64
	Parent     *int64
	Text       string
	Author     *string
	Email      *string
	Website    *string
	RemoteAddr *string
	Hash       string
}

type Preference struct {
	Key   string
	Value string
}
