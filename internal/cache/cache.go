// Package cache is the persistent store for nodes and centrality
// metrics: a SQLite-backed, transactional key-value-shaped table pair
// that every other store-engine component reads through.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// NodeSummary is the trimmed projection returned by ListNodes.
type NodeSummary struct {
	ID    string
	Title string
}

// ListFilter narrows ListNodes to a tag and/or path prefix, both matched
// case-insensitively.
type ListFilter struct {
	Tag  string
	Path string
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	nodeCacheSize    = 2048
)

// Cache is the SQLite-backed node and centrality store. A Cache holds an
// exclusive advisory file lock for its lifetime, enforcing single-writer
// access across processes pointed at the same database file.
type Cache struct {
	mu sync.RWMutex
	db *sql.DB

	lock *flock.Flock

	nodeCache *lru.Cache[string, *types.Node]
}

// Open creates or opens the cache database at path, acquiring an
// exclusive advisory lock alongside it. path may be ":memory:" for a
// transient, single-process cache (no lock file is taken in that case).
func Open(path string) (*Cache, error) {
	dsn := path
	var fl *flock.Flock

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, rerrors.Provider("cannot create cache directory", err)
		}

		fl = flock.New(path + ".lock")
		locked, err := fl.TryLock()
		if err != nil {
			return nil, rerrors.Provider("cannot acquire cache lock", err)
		}
		if !locked {
			return nil, rerrors.Provider("cache is already open by another process", nil).
				WithDetail("path", path)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		unlockIfHeld(fl)
		return nil, rerrors.Provider("failed to open cache database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			unlockIfHeld(fl)
			return nil, rerrors.Provider("failed to set cache pragma", err)
		}
	}

	nodeCache, err := lru.New[string, *types.Node](nodeCacheSize)
	if err != nil {
		_ = db.Close()
		unlockIfHeld(fl)
		return nil, rerrors.InternalErr("failed to create node cache", err)
	}

	c := &Cache{db: db, lock: fl, nodeCache: nodeCache}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		unlockIfHeld(fl)
		return nil, err
	}

	return c, nil
}

func unlockIfHeld(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL,
		content        TEXT,
		tags           TEXT NOT NULL,
		outgoing_links TEXT NOT NULL,
		properties     TEXT NOT NULL,
		is_ghost       INTEGER NOT NULL DEFAULT 0,
		mtime          TEXT
	);

	CREATE TABLE IF NOT EXISTS centrality (
		node_id              TEXT PRIMARY KEY REFERENCES nodes(id) ON DELETE CASCADE,
		in_degree            INTEGER NOT NULL,
		out_degree           INTEGER NOT NULL,
		pagerank_placeholder REAL NOT NULL DEFAULT 0,
		computed_at          TEXT NOT NULL
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return rerrors.Provider("failed to initialize cache schema", err)
	}
	return nil
}

// Close releases the database connection and the advisory lock.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.db.Close()
	unlockIfHeld(c.lock)
	if err != nil {
		return rerrors.Provider("failed to close cache database", err)
	}
	return nil
}

type nodeRow struct {
	id, title, tags, outgoingLinks, properties string
	content                                    sql.NullString
	isGhost                                    bool
	mtime                                      sql.NullString
}

func (c *Cache) scanRowToNode(r nodeRow) (*types.Node, error) {
	var tags []string
	if err := json.Unmarshal([]byte(r.tags), &tags); err != nil {
		return nil, rerrors.InternalErr("corrupt tags column for "+r.id, err)
	}
	var links []string
	if err := json.Unmarshal([]byte(r.outgoingLinks), &links); err != nil {
		return nil, rerrors.InternalErr("corrupt outgoing_links column for "+r.id, err)
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(r.properties), &props); err != nil {
		return nil, rerrors.InternalErr("corrupt properties column for "+r.id, err)
	}

	n := &types.Node{
		ID:            r.id,
		Title:         r.title,
		Tags:          tags,
		OutgoingLinks: links,
		Properties:    props,
		Ghost:         r.isGhost,
	}
	if r.content.Valid {
		content := r.content.String
		n.Content = &content
	}
	if r.mtime.Valid && r.mtime.String != "" {
		t, err := time.Parse(time.RFC3339Nano, r.mtime.String)
		if err == nil {
			n.SourceRef = &types.SourceRef{Kind: "file", LastModified: t}
		}
	}
	return n, nil
}

const selectNodeColumns = `id, title, content, tags, outgoing_links, properties, is_ghost, mtime`

func scanNode(scanner interface{ Scan(...any) error }) (nodeRow, error) {
	var r nodeRow
	var isGhostInt int
	err := scanner.Scan(&r.id, &r.title, &r.content, &r.tags, &r.outgoingLinks, &r.properties, &isGhostInt, &r.mtime)
	r.isGhost = isGhostInt != 0
	return r, err
}

// GetNode returns the node for id, or (nil, nil) if it doesn't exist.
func (c *Cache) GetNode(ctx context.Context, id string) (*types.Node, error) {
	c.mu.RLock()
	if cached, ok := c.nodeCache.Get(id); ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx, "SELECT "+selectNodeColumns+" FROM nodes WHERE id = ?", id)
	r, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, rerrors.Provider("failed to query node "+id, err)
	}

	n, err := c.scanRowToNode(r)
	if err != nil {
		return nil, err
	}
	c.nodeCache.Add(id, n)
	return n, nil
}

// GetNodes returns every node among ids that exists, in no particular
// order. Missing ids are silently omitted.
func (c *Cache) GetNodes(ctx context.Context, ids []string) ([]*types.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]*types.Node, 0, len(ids))
	for _, id := range ids {
		n, err := c.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetAllNodes returns every node in the cache.
func (c *Cache) GetAllNodes(ctx context.Context) ([]*types.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, "SELECT "+selectNodeColumns+" FROM nodes")
	if err != nil {
		return nil, rerrors.Provider("failed to query all nodes", err)
	}
	defer rows.Close()

	var out []*types.Node
	for rows.Next() {
		r, err := scanNode(rows)
		if err != nil {
			return nil, rerrors.Provider("failed to scan node row", err)
		}
		n, err := c.scanRowToNode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpsertNode inserts or replaces node, keyed by its id.
func (c *Cache) UpsertNode(ctx context.Context, n *types.Node) error {
	if n == nil {
		return rerrors.Invalid("node must not be nil")
	}

	tagsJSON, _ := json.Marshal(nonNilStrings(n.Tags))
	linksJSON, _ := json.Marshal(nonNilStrings(n.OutgoingLinks))
	propsJSON, _ := json.Marshal(nonNilProps(n.Properties))

	var content sql.NullString
	if n.Content != nil {
		content = sql.NullString{String: *n.Content, Valid: true}
	}

	var mtime sql.NullString
	if n.SourceRef != nil && !n.SourceRef.LastModified.IsZero() {
		mtime = sql.NullString{String: n.SourceRef.LastModified.Format(time.RFC3339Nano), Valid: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO nodes (id, title, content, tags, outgoing_links, properties, is_ghost, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			tags = excluded.tags,
			outgoing_links = excluded.outgoing_links,
			properties = excluded.properties,
			is_ghost = excluded.is_ghost,
			mtime = excluded.mtime
	`, n.ID, n.Title, content, string(tagsJSON), string(linksJSON), string(propsJSON), boolToInt(n.Ghost), mtime)
	if err != nil {
		return rerrors.Provider("failed to upsert node "+n.ID, err)
	}

	c.nodeCache.Remove(n.ID)
	return nil
}

// DeleteNode removes a node and its centrality row (cascade).
func (c *Cache) DeleteNode(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id); err != nil {
		return rerrors.Provider("failed to delete node "+id, err)
	}
	c.nodeCache.Remove(id)
	return nil
}

// NodesExist reports, for every queried id, whether it exists. Every
// queried id is present as a key in the result.
func (c *Cache) NodesExist(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		result[id] = false
	}
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		"SELECT id FROM nodes WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, rerrors.Provider("failed to query nodes_exist", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, rerrors.Provider("failed to scan nodes_exist row", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}

// ResolveTitles returns a map of id -> title for every id that exists;
// missing ids are simply absent from the result.
func (c *Cache) ResolveTitles(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string)
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, title FROM nodes WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, rerrors.Provider("failed to query resolve_titles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, rerrors.Provider("failed to scan resolve_titles row", err)
		}
		result[id] = title
	}
	return result, rows.Err()
}

// ListNodes returns a page of NodeSummary matching filter, along with the
// total filter-matched count (not the page size).
func (c *Cache) ListNodes(ctx context.Context, filter ListFilter, offset, limit int) ([]NodeSummary, int, error) {
	if offset < 0 {
		return nil, 0, rerrors.Invalid("offset must be >= 0")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var where []string
	var args []any

	if filter.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tags) WHERE LOWER(json_each.value) = LOWER(?))")
		args = append(args, filter.Tag)
	}
	if filter.Path != "" {
		where = append(where, "LOWER(id) LIKE LOWER(?) ESCAPE '\\'")
		args = append(args, escapeLikePrefix(filter.Path)+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int
	countRow := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes"+whereClause, args...)
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, rerrors.Provider("failed to count list_nodes", err)
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, title FROM nodes"+whereClause+" ORDER BY id ASC LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, 0, rerrors.Provider("failed to query list_nodes", err)
	}
	defer rows.Close()

	var out []NodeSummary
	for rows.Next() {
		var s NodeSummary
		if err := rows.Scan(&s.ID, &s.Title); err != nil {
			return nil, 0, rerrors.Provider("failed to scan list_nodes row", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// StoreCentrality overwrites the centrality table wholesale with metrics.
func (c *Cache) StoreCentrality(ctx context.Context, metrics map[string]types.Centrality) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return rerrors.Provider("failed to begin centrality transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM centrality"); err != nil {
		return rerrors.Provider("failed to clear centrality", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO centrality (node_id, in_degree, out_degree, pagerank_placeholder, computed_at)
		VALUES (?, ?, ?, 0, ?)
	`)
	if err != nil {
		return rerrors.Provider("failed to prepare centrality insert", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(metrics))
	for id := range metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		m := metrics[id]
		if _, err := stmt.ExecContext(ctx, id, m.InDegree, m.OutDegree, m.ComputedAt.Format(time.RFC3339Nano)); err != nil {
			return rerrors.Provider("failed to insert centrality for "+id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rerrors.Provider("failed to commit centrality transaction", err)
	}
	return nil
}

// GetCentrality returns the centrality record for id, or (nil, nil) if
// none is stored.
func (c *Cache) GetCentrality(ctx context.Context, id string) (*types.Centrality, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx,
		"SELECT node_id, in_degree, out_degree, computed_at FROM centrality WHERE node_id = ?", id)

	var m types.Centrality
	var computedAt string
	err := row.Scan(&m.NodeID, &m.InDegree, &m.OutDegree, &computedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, rerrors.Provider("failed to query centrality for "+id, err)
	}

	t, parseErr := time.Parse(time.RFC3339Nano, computedAt)
	if parseErr == nil {
		m.ComputedAt = t
	}
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilProps(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func escapeLikePrefix(s string) string {
	r := strings.NewReplacer("%", "\\%", "_", "\\_")
	return r.Replace(s)
}
