package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrParentNotFound means a reply referenced a comment that does not exist.
	ErrParentNotFound = errors.New("parent comment not found")
	// ErrCrossThreadParent means a reply referenced a comment in another thread.
	ErrCrossThreadParent = errors.New("parent comment belongs to another thread")
	// ErrAlreadyVoted means the voter fingerprint is already recorded on the comment.
	ErrAlreadyVoted = errors.New("fingerprint already voted on comment")
	// ErrCommentCycle means the ancestor chain of a comment loops back on itself.
	ErrCommentCycle = errors.New("comment ancestor chain contains a cycle")
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LookupThreads returns every thread row matching a uri. The uri column is
// unique, so more than one row signals prior corruption; the caller decides
// how to treat that.
func (s *PostgresStore) LookupThreads(ctx context.Context, uri string) ([]Thread, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, uri, title FROM threads WHERE uri=$1`, uri)
	if err != nil {
		return nil, fmt.Errorf("lookup threads: %w", err)
	}
	defer rows.Close()

	items := make([]Thread, 0, 1)
	for rows.Next() {
		var item Thread
		if err := rows.Scan(&item.ID, &item.URI, &item.Title); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetThread(ctx context.Context, id int64) (Thread, error) {
	var item Thread
	err := s.db.QueryRowContext(ctx, `SELECT id, uri, title FROM threads WHERE id=$1`, id).Scan(&item.ID, &item.URI, &item.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, err
	}
	if err != nil {
		return Thread{}, fmt.Errorf("get thread: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) CreateThread(ctx context.Context, uri string, title *string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO threads (uri, title)
		VALUES ($1, $2)
		RETURNING id
	`, uri, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert thread: %w", err)
	}
	return id, nil
}

const commentColumns = `id, tid, parent, created, modified, mode, remote_addr, text, author, email, website, hash, likes, dislikes, voters`

func scanComment(row interface{ Scan(...any) error }) (Comment, error) {
	var c Comment
	var voters []byte
	err := row.Scan(&c.ID, &c.ThreadID, &c.Parent, &c.Created, &c.Modified, &c.Mode,
		&c.RemoteAddr, &c.Text, &c.Author, &c.Email, &c.Website, &c.Hash,
		&c.Likes, &c.Dislikes, &voters)
	if err != nil {
		return Comment{}, err
	}
	if len(voters) > 0 {
		if err := json.Unmarshal(voters, &c.Voters); err != nil {
			return Comment{}, fmt.Errorf("decode voters: %w", err)
		}
	}
	return c, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, id int64) (Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=$1`, id)
	comment, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, err
	}
	if err != nil {
		return Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return comment, nil
}

// InsertComment writes a new comment row. When a parent is given its ancestor
// chain is walked inside the same transaction as the insert, so two racing
// replies to the same near-limit parent see a consistent depth. A parent
// deeper than nestingLimit rewrites the reply to hang off the parent's own
// parent instead; this slows runaway nesting without hard-capping it.
func (s *PostgresStore) InsertComment(ctx context.Context, c NewComment, nestingLimit int) (Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Comment{}, fmt.Errorf("begin insert comment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if c.Parent != nil {
		parent, err := resolveParent(ctx, tx, c.ThreadID, *c.Parent, nestingLimit)
		if err != nil {
			return Comment{}, err
		}
		c.Parent = parent
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO comments (tid, parent, mode, remote_addr, text, author, email, website, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+commentColumns, c.ThreadID, c.Parent, ModeVisible, c.RemoteAddr, c.Text, c.Author, c.Email, c.Website, c.Hash)
	inserted, err := scanComment(row)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Comment{}, fmt.Errorf("commit insert comment: %w", err)
	}
	return inserted, nil
}

// resolveParent walks from parentID to the thread root counting hops, and
// returns the parent the reply should actually attach to. A root comment has
// depth 0.
func resolveParent(ctx context.Context, tx *sql.Tx, threadID, parentID int64, nestingLimit int) (*int64, error) {
	var parentThread int64
	var grandparent *int64
	err := tx.QueryRowContext(ctx, `SELECT tid, parent FROM comments WHERE id=$1`, parentID).Scan(&parentThread, &grandparent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read parent comment: %w", err)
	}
	if parentThread != threadID {
		return nil, ErrCrossThreadParent
	}

	depth := 0
	visited := map[int64]bool{parentID: true}
	ancestor := grandparent
	for ancestor != nil {
		if visited[*ancestor] {
			return nil, ErrCommentCycle
		}
		visited[*ancestor] = true
		depth++

		var next *int64
		err := tx.QueryRowContext(ctx, `SELECT parent FROM comments WHERE id=$1`, *ancestor).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk ancestor chain: %w", err)
		}
		ancestor = next
	}

	if depth > nestingLimit {
		return grandparent, nil
	}
	attach := parentID
	return &attach, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, id int64, text string, author, email, website *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE comments
		SET text=$2, author=$3, email=$4, website=$5, modified=NOW()
		WHERE id=$1
	`, id, text, author, email, website)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update comment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteComment removes a leaf comment outright. A comment with replies is
// kept as a tombstone so the subtree under it stays addressable: content and
// contact fields are cleared, id and parent linkage survive. Reports whether
// a tombstone was left behind.
func (s *PostgresStore) DeleteComment(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete comment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var children int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE parent=$1`, id).Scan(&children); err != nil {
		return false, fmt.Errorf("count children: %w", err)
	}

	var result sql.Result
	tombstoned := children > 0
	if tombstoned {
		result, err = tx.ExecContext(ctx, `
			UPDATE comments
			SET text='', author=NULL, email=NULL, website=NULL, remote_addr=NULL, hash=''
			WHERE id=$1
		`, id)
	} else {
		result, err = tx.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, id)
	}
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comment rows: %w", err)
	}
	if affected == 0 {
		return false, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete comment: %w", err)
	}
	return tombstoned, nil
}

// VoteComment records one like or dislike per voter fingerprint per comment.
// The membership check and the counter bump happen in a single guarded
// statement, so concurrent votes by the same fingerprint cannot double-count.
func (s *PostgresStore) VoteComment(ctx context.Context, id int64, voter string, like bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE comments
		SET likes    = likes    + CASE WHEN $3 THEN 1 ELSE 0 END,
		    dislikes = dislikes + CASE WHEN $3 THEN 0 ELSE 1 END,
		    voters   = voters || to_jsonb($2::text)
		WHERE id=$1 AND NOT voters ? $2
	`, id, voter, like)
	if err != nil {
		return fmt.Errorf("vote comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("vote comment rows: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check comment exists: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrAlreadyVoted
}

func (s *PostgresStore) CountComments(ctx context.Context, uri string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM comments c
		JOIN threads t ON t.id = c.tid
		WHERE t.uri = $1 AND c.mode = $2
	`, uri, ModeVisible).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// ListComments returns the flat visible comment rows for a thread uri,
// oldest first. An unknown uri yields an empty slice, not an error.
func (s *PostgresStore) ListComments(ctx context.Context, uri string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedCommentColumns("c")+`
		FROM comments c
		JOIN threads t ON t.id = c.tid
		WHERE t.uri = $1 AND c.mode = $2
		ORDER BY c.created ASC, c.id ASC
	`, uri, ModeVisible)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func prefixedCommentColumns(alias string) string {
	return alias + ".id, " + alias + ".tid, " + alias + ".parent, " + alias + ".created, " +
		alias + ".modified, " + alias + ".mode, " + alias + ".remote_addr, " + alias + ".text, " +
		alias + ".author, " + alias + ".email, " + alias + ".website, " + alias + ".hash, " +
		alias + ".likes, " + alias + ".dislikes, " + alias + ".voters"
}

// SetSessionSecret writes the process-wide signing secret. The row is
// upserted, never multiplied; rotating it invalidates outstanding edit tokens.
func (s *PostgresStore) SetSessionSecret(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value)
		VALUES ('session-key', $1)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value
	`, value)
	if err != nil {
		return fmt.Errorf("set session secret: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSessionSecret(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key='session-key'`).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get session secret: %w", err)
	}
	return value, nil
}
