package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"commentary/api/internal/auth"
	"commentary/api/internal/config"
	"commentary/api/internal/search"
	"commentary/api/internal/store"
)

type PostCommentInput struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Author  string `json:"author"`
	Email   string `json:"email"`
	Website string `json:"website"`
	Parent  *int64 `json:"parent"`

	RemoteAddr string `json:"-"`
}

type UpdateCommentInput struct {
	Text    string `json:"text"`
	Author  string `json:"author"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// CommentView is the display-safe projection of a comment. The stored email,
// website and remote address never leave the service; the author label is
// already derived and obfuscated.
type CommentView struct {
	ID       int64      `json:"id"`
	Parent   *int64     `json:"parent,omitempty"`
	Text     string     `json:"text"`
	Author   string     `json:"author,omitempty"`
	Hash     string     `json:"hash,omitempty"`
	Created  time.Time  `json:"created"`
	Modified *time.Time `json:"modified,omitempty"`
	Likes    int        `json:"likes"`
	Dislikes int        `json:"dislikes"`
}

type NestedComment struct {
	CommentView
	Children []NestedComment `json:"children"`
}

type dataStore interface {
	LookupThreads(context.Context, string) ([]store.Thread, error)
	CreateThread(context.Context, string, *string) (int64, error)
	GetThread(context.Context, int64) (store.Thread, error)
	GetComment(context.Context, int64) (store.Comment, error)
	InsertComment(context.Context, store.NewComment, int) (store.Comment, error)
	UpdateComment(context.Context, int64, string, *string, *string, *string) error
	DeleteComment(context.Context, int64) (bool, error)
	VoteComment(context.Context, int64, string, bool) error
	CountComments(context.Context, string) (int, error)
	ListComments(context.Context, string) ([]store.Comment, error)
	SetSessionSecret(context.Context, string) error
	GetSessionSecret(context.Context) (string, error)
	Ping(ctx context.Context) error
}

type originVerifier interface {
	Verify(ctx context.Context, host, path string) error
}

type commentNotifier interface {
	IsConfigured() bool
	SendCommentNotification(to, toName, posterName, replyTo, blogName, postTitle, commentText, postURL, remoteAddr string) error
}

type postLimiter interface {
	Allow(ctx context.Context, addr string) (bool, error)
}

type searchIndex interface {
	Search(ctx context.Context, text string, limit, offset int) search.Response
	IndexComment(record search.CommentRecord)
	DeleteComment(id string)
}

type Service struct {
	cfg     config.Config
	store   dataStore
	secret  []byte
	origin  originVerifier
	mail    commentNotifier
	limiter postLimiter
	search  searchIndex
}

func New(cfg config.Config, dataStore *store.PostgresStore, secret []byte) *Service {
	return &Service{
		cfg:    cfg,
		store:  dataStore,
		secret: secret,
	}
}

// UseOriginVerifier enables path verification against the blog origin.
func (s *Service) UseOriginVerifier(v originVerifier) { s.origin = v }

// UseNotifier enables email notification on new comments.
func (s *Service) UseNotifier(n commentNotifier) { s.mail = n }

// UseLimiter enables per-address rate limiting of comment posting.
func (s *Service) UseLimiter(l postLimiter) { s.limiter = l }

// UseSearch enables full-text indexing and search of comments.
func (s *Service) UseSearch(svc searchIndex) { s.search = svc }

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionSecret() []byte {
	return s.secret
}

func (s *Service) SearchService() searchIndex {
	return s.search
}

// ResolveThread maps a post path to its thread id, creating the thread row on
// first sight. Before creating in response to untrusted input the path is
// checked against the configured blog host; a path the origin does not serve
// is rejected as a client error. The title of an existing thread is never
// updated even if the incoming one differs: first write wins.
func (s *Service) ResolveThread(ctx context.Context, title, path string) (int64, error) {
	threads, err := s.store.LookupThreads(ctx, path)
	if err != nil {
		return 0, errStorageRead(err)
	}
	switch len(threads) {
	case 1:
		return threads[0].ID, nil
	case 0:
		// fall through to creation
	default:
		return 0, errDataIntegrity("more than one thread row for uri " + path)
	}

	if s.cfg.VerifyPaths && s.origin != nil {
		if err := s.origin.Verify(ctx, s.cfg.BlogHost, path); err != nil {
			return 0, errPathRejected(path)
		}
	}

	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}
	id, err := s.store.CreateThread(ctx, path, titlePtr)
	if err != nil {
		return 0, errInsertFailed(err)
	}
	return id, nil
}

// CreateComment inserts a comment into an already-resolved thread. The
// identity hash is derived once here and never recomputed.
func (s *Service) CreateComment(ctx context.Context, threadID int64, in PostCommentInput) (CommentView, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return CommentView{}, domainError(400, "EMPTY_TEXT", "Comment text must not be empty", nil)
	}

	hash := deriveIdentityHash(in.Author, in.Email, in.Website, in.RemoteAddr)
	record := store.NewComment{
		ThreadID:   threadID,
		Parent:     in.Parent,
		Text:       text,
		Author:     optional(in.Author),
		Email:      optional(in.Email),
		Website:    optional(in.Website),
		RemoteAddr: optional(in.RemoteAddr),
		Hash:       hash,
	}

	inserted, err := s.store.InsertComment(ctx, record, s.cfg.NestingLimit)
	switch {
	case errors.Is(err, store.ErrParentNotFound), errors.Is(err, store.ErrCrossThreadParent):
		return CommentView{}, domainError(400, "INVALID_PARENT", "Parent comment does not exist in this thread", nil)
	case errors.Is(err, store.ErrCommentCycle):
		return CommentView{}, errDataIntegrity("comment ancestor chain contains a cycle")
	case err != nil:
		return CommentView{}, errInsertFailed(err)
	}

	return projectComment(inserted), nil
}

// PostComment is the full inbound flow: rate limit, thread resolution,
// insert, edit token issuance, then best-effort notification and indexing.
// A failing notification never rolls back a successful insert.
func (s *Service) PostComment(ctx context.Context, in PostCommentInput) (CommentView, string, error) {
	if s.limiter != nil && in.RemoteAddr != "" {
		allowed, err := s.limiter.Allow(ctx, in.RemoteAddr)
		if err != nil {
			log.Printf("ratelimit: check failed, allowing: %v", err)
		} else if !allowed {
			return CommentView{}, "", errRateLimited()
		}
	}

	threadID, err := s.ResolveThread(ctx, in.Title, in.Path)
	if err != nil {
		return CommentView{}, "", err
	}

	view, err := s.CreateComment(ctx, threadID, in)
	if err != nil {
		return CommentView{}, "", err
	}

	token, err := auth.IssueEditToken(s.secret, auth.EditClaims{
		CommentID: view.ID,
		Hash:      view.Hash,
		Exp:       time.Now().Add(s.cfg.EditWindow).Unix(),
	})
	if err != nil {
		log.Printf("comment %d: issue edit token: %v", view.ID, err)
		token = ""
	}

	s.notifyNewComment(in, view)
	s.indexComment(view, in.Path, in.Title)

	return view, token, nil
}

func (s *Service) notifyNewComment(in PostCommentInput, view CommentView) {
	if s.mail == nil || !s.mail.IsConfigured() || s.cfg.NotifyTo == "" {
		return
	}
	postURL := strings.TrimRight(s.cfg.BlogHost, "/") + in.Path
	go func() {
		err := s.mail.SendCommentNotification(
			s.cfg.NotifyTo,
			s.cfg.NotifyToName,
			senderName(in.Author),
			senderEmail(in.Email),
			s.cfg.BlogName,
			in.Title,
			view.Text,
			postURL,
			in.RemoteAddr,
		)
		if err != nil {
			log.Printf("comment %d: send notification: %v", view.ID, err)
		}
	}()
}

func (s *Service) indexComment(view CommentView, path, title string) {
	if s.search == nil {
		return
	}
	s.search.IndexComment(search.CommentRecord{
		ID:          strconv.FormatInt(view.ID, 10),
		Text:        view.Text,
		Author:      view.Author,
		ThreadURI:   path,
		ThreadTitle: title,
		Created:     view.Created.Unix(),
	})
}

// authorize admits an edit or delete only when the candidate hash matches the
// stored one and the comment is still inside the edit window. There are no
// partial matches and no account-based override.
func (s *Service) authorize(ctx context.Context, candidateHash string, commentID int64) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err != nil {
		return errStorageRead(err)
	}
	if candidateHash == "" || comment.Hash == "" || candidateHash != comment.Hash {
		return errUnauthorized()
	}
	if time.Since(comment.Created) > s.cfg.EditWindow {
		return errUnauthorized()
	}
	return nil
}

// UpdateComment edits a comment in place. The identity hash is deliberately
// not recomputed from the new contact fields, so a self-edit cannot be used
// to re-authorize a different identity later.
func (s *Service) UpdateComment(ctx context.Context, commentID int64, candidateHash string, in UpdateCommentInput) (CommentView, error) {
	if err := s.authorize(ctx, candidateHash, commentID); err != nil {
		return CommentView{}, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return CommentView{}, domainError(400, "EMPTY_TEXT", "Comment text must not be empty", nil)
	}

	err := s.store.UpdateComment(ctx, commentID, text, optional(in.Author), optional(in.Email), optional(in.Website))
	if errors.Is(err, sql.ErrNoRows) {
		return CommentView{}, err
	}
	if err != nil {
		return CommentView{}, errStorageRead(err)
	}

	updated, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return CommentView{}, errStorageRead(err)
	}
	view := projectComment(updated)
	s.reindexComment(ctx, updated, view)
	return view, nil
}

// reindexComment pushes the edited comment back into the search index. The
// index holds whole documents, so the record must carry the thread fields too
// or the edit would wipe them. Indexing is best effort and never fails the
// edit itself.
func (s *Service) reindexComment(ctx context.Context, updated store.Comment, view CommentView) {
	if s.search == nil {
		return
	}
	thread, err := s.store.GetThread(ctx, updated.ThreadID)
	if err != nil {
		log.Printf("comment %d: load thread for reindex: %v", view.ID, err)
		return
	}
	s.search.IndexComment(search.CommentRecord{
		ID:          strconv.FormatInt(view.ID, 10),
		Text:        view.Text,
		Author:      view.Author,
		ThreadURI:   thread.URI,
		ThreadTitle: deref(thread.Title),
		Created:     view.Created.Unix(),
	})
}

// DeleteComment removes a comment after authorization. Leaves are removed
// outright; a comment with replies becomes a tombstone so its subtree stays
// addressable.
func (s *Service) DeleteComment(ctx context.Context, commentID int64, candidateHash string) error {
	if err := s.authorize(ctx, candidateHash, commentID); err != nil {
		return err
	}

	_, err := s.store.DeleteComment(ctx, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err != nil {
		return errStorageRead(err)
	}

	if s.search != nil {
		s.search.DeleteComment(strconv.FormatInt(commentID, 10))
	}
	return nil
}

// VoteComment records one like or dislike per voter fingerprint per comment.
// There is no vote retraction and no switching.
func (s *Service) VoteComment(ctx context.Context, commentID int64, voterFingerprint string, like bool) error {
	if voterFingerprint == "" {
		return errUnauthorized()
	}
	err := s.store.VoteComment(ctx, commentID, voterFingerprint, like)
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if errors.Is(err, store.ErrAlreadyVoted) {
		return errAlreadyVoted()
	}
	if err != nil {
		return errStorageRead(err)
	}
	return nil
}

func (s *Service) CommentCount(ctx context.Context, path string) (int, error) {
	count, err := s.store.CountComments(ctx, path)
	if err != nil {
		return 0, errStorageRead(err)
	}
	return count, nil
}

func projectComment(c store.Comment) CommentView {
	return CommentView{
		ID:       c.ID,
		Parent:   c.Parent,
		Text:     c.Text,
		Author:   displayAuthor(deref(c.Author), deref(c.Email), deref(c.Website)),
		Hash:     c.Hash,
		Created:  c.Created,
		Modified: c.Modified,
		Likes:    c.Likes,
		Dislikes: c.Dislikes,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func senderName(author string) string {
	if author == "" {
		return "anonymous"
	}
	return author
}

func senderEmail(email string) string {
	if email == "" {
		return "noreply@dev.null"
	}
	return email
}
