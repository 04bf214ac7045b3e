package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const documentColumns = "id, path, parent_path, name, doc_type, properties, blob, created_at, updated_at"

var propertyKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Session is a unit of work bound to one transaction. It is only valid
// inside the Store.Do callback that produced it.
type Session struct {
	ctx context.Context
	tx  *sql.Tx
}

// TimeBound restricts a query to documents whose timestamp property is set
// and strictly earlier than Time.
type TimeBound struct {
	Property string
	Time     time.Time
}

// Query filters documents. Zero fields are ignored.
type Query struct {
	Parent string
	Type   string
	Equals map[string]string
	Before *TimeBound
}

// Get returns the document at p.
func (s *Session) Get(p string) (*Document, error) {
	row := s.tx.QueryRowContext(s.ctx, `SELECT `+documentColumns+` FROM documents WHERE path = ?`, p)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", p, err)
	}
	return doc, nil
}

// Exists reports whether a document lives at p.
func (s *Session) Exists(p string) (bool, error) {
	var count int
	if err := s.tx.QueryRowContext(s.ctx, `SELECT COUNT(1) FROM documents WHERE path = ?`, p).Scan(&count); err != nil {
		return false, fmt.Errorf("check document %s: %w", p, err)
	}
	return count > 0, nil
}

// Create inserts doc. The parent folder must already exist.
func (s *Session) Create(doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if doc.Name == "" || strings.Contains(doc.Name, "/") {
		return fmt.Errorf("invalid document name %q", doc.Name)
	}
	if doc.ParentPath == "" {
		doc.ParentPath = RootPath
	}
	doc.Path = Join(doc.ParentPath, doc.Name)

	parentExists, err := s.Exists(doc.ParentPath)
	if err != nil {
		return err
	}
	if !parentExists {
		return fmt.Errorf("%w: parent %s", ErrNotFound, doc.ParentPath)
	}

	props, err := encodeProperties(doc.Properties)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.tx.ExecContext(s.ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Path, doc.ParentPath, doc.Name, doc.Type, props, nullableBlob(doc.Blob),
		FormatTime(now), FormatTime(now),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrExists, doc.Path)
	}
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.Path, err)
	}
	return nil
}

// Update persists the properties and blob of an existing document.
func (s *Session) Update(doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	props, err := encodeProperties(doc.Properties)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	res, err := s.tx.ExecContext(s.ctx,
		`UPDATE documents SET properties = ?, blob = ?, updated_at = ? WHERE path = ?`,
		props, nullableBlob(doc.Blob), FormatTime(doc.UpdatedAt), doc.Path,
	)
	if err != nil {
		return fmt.Errorf("update document %s: %w", doc.Path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document %s: %w", doc.Path, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, doc.Path)
	}
	return nil
}

// Delete removes the document at p together with its descendants.
func (s *Session) Delete(p string) error {
	if p == RootPath {
		return errors.New("cannot delete root folder")
	}
	res, err := s.tx.ExecContext(s.ctx,
		`DELETE FROM documents WHERE path = ? OR path LIKE ? ESCAPE '\'`,
		p, escapeLike(p)+"/%",
	)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", p, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", p, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return nil
}

// Children lists the direct children of parent in creation order.
func (s *Session) Children(parent string) ([]*Document, error) {
	return s.Query(Query{Parent: parent})
}

// Query returns documents matching q in creation order.
func (s *Session) Query(q Query) ([]*Document, error) {
	where, args, err := q.build()
	if err != nil {
		return nil, err
	}
	rows, err := s.tx.QueryContext(s.ctx, `SELECT `+documentColumns+` FROM documents`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteWhere removes documents matching q and returns how many were removed.
// Descendants of matched documents are not visited.
func (s *Session) DeleteWhere(q Query) (int64, error) {
	where, args, err := q.build()
	if err != nil {
		return 0, err
	}
	if where == "" {
		return 0, errors.New("refusing unfiltered delete")
	}
	res, err := s.tx.ExecContext(s.ctx, `DELETE FROM documents`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	return affected, nil
}

// Count returns how many documents match q.
func (s *Session) Count(q Query) (int64, error) {
	where, args, err := q.build()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.tx.QueryRowContext(s.ctx, `SELECT COUNT(1) FROM documents`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (q Query) build() (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	if q.Parent != "" {
		clauses = append(clauses, "parent_path = ?")
		args = append(args, q.Parent)
	}
	if q.Type != "" {
		clauses = append(clauses, "doc_type = ?")
		args = append(args, q.Type)
	}
	keys := make([]string, 0, len(q.Equals))
	for key := range q.Equals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !propertyKeyPattern.MatchString(key) {
			return "", nil, fmt.Errorf("invalid property key %q", key)
		}
		clauses = append(clauses, "json_extract(properties, ?) = ?")
		args = append(args, "$."+key, q.Equals[key])
	}
	if q.Before != nil {
		if !propertyKeyPattern.MatchString(q.Before.Property) {
			return "", nil, fmt.Errorf("invalid property key %q", q.Before.Property)
		}
		clauses = append(clauses, "json_extract(properties, ?) IS NOT NULL AND json_extract(properties, ?) < ?")
		path := "$." + q.Before.Property
		args = append(args, path, path, FormatTime(q.Before.Time))
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		doc        Document
		parentPath sql.NullString
		properties string
		blob       []byte
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&doc.ID,
		&doc.Path,
		&parentPath,
		&doc.Name,
		&doc.Type,
		&properties,
		&blob,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	props, err := decodeProperties(properties)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Path, err)
	}
	doc.ParentPath = parentPath.String
	doc.Properties = props
	if len(blob) > 0 {
		doc.Blob = append([]byte(nil), blob...)
	}
	if created, err := ParseTime(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := ParseTime(updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return &doc, nil
}

func nullableBlob(value []byte) any {
	if value == nil {
		return nil
	}
	return value
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}
