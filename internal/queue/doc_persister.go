package queue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"nxqueue/internal/docstore"
)

const (
	queuesRoot     = "/queues"
	typeQueue      = "Queue"
	typeQueueItem  = "QueueItem"
	propName       = "name"
	propOwner      = "owner"
	propContent    = "content_type"
	propExecuted   = "execute_time"
	propExecutions = "execution_count"
	propBlacklist  = "blacklist_time"
)

// DocumentPersister stores items as documents under /queues/<queue>.
type DocumentPersister struct {
	store       *docstore.Store
	queue       string
	contentType ContentType
	folder      string
	now         func() time.Time
}

// NewDocumentPersister binds a persister to store for queue.
func NewDocumentPersister(store *docstore.Store, queue string, contentType ContentType, opts ...PersisterOption) (*DocumentPersister, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	if contentType == nil {
		return nil, fmt.Errorf("%w: content type is required", ErrContentType)
	}
	if _, err := NewQueueName(queue); err != nil {
		return nil, err
	}
	o := newPersisterOptions(opts)
	return &DocumentPersister{
		store:       store,
		queue:       queue,
		contentType: contentType,
		folder:      docstore.Join(queuesRoot, queue),
		now:         o.now,
	}, nil
}

func (p *DocumentPersister) itemPath(name *url.URL) (string, error) {
	item, err := checkName(p.queue, name)
	if err != nil {
		return "", err
	}
	return docstore.Join(p.folder, itemDocName(item)), nil
}

// itemDocName maps an item name to a single path segment.
func itemDocName(item string) string {
	escaped := url.PathEscape(item)
	if escaped == "." || escaped == ".." {
		return strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}

func (p *DocumentPersister) ensureFolder(s *docstore.Session) error {
	ok, err := s.Exists(queuesRoot)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.Create(docstore.NewDocument(docstore.RootPath, "queues", docstore.TypeFolder)); err != nil && !errors.Is(err, docstore.ErrExists) {
			return err
		}
	}

	folder, err := s.Get(p.folder)
	if errors.Is(err, docstore.ErrNotFound) {
		doc := docstore.NewDocument(queuesRoot, p.queue, typeQueue)
		doc.Set(propContent, p.contentType.Name())
		return s.Create(doc)
	}
	if err != nil {
		return err
	}
	if bound := folder.String(propContent); bound != "" && bound != p.contentType.Name() {
		return fmt.Errorf("%w: queue %s stores %s content, not %s", ErrContentType, p.queue, bound, p.contentType.Name())
	}
	return nil
}

func (p *DocumentPersister) isNil() bool { return p == nil }

// CreateIfNotExist ensures /queues and the queue folder exist.
func (p *DocumentPersister) CreateIfNotExist(ctx context.Context) error {
	if err := p.store.Do(ctx, p.ensureFolder); err != nil {
		return p.fail("create queue", nil, err)
	}
	return nil
}

// AddContent stores a new item.
func (p *DocumentPersister) AddContent(ctx context.Context, owner, name *url.URL, content any) (*Item, error) {
	if owner == nil {
		return nil, p.fail("add content", name, fmt.Errorf("%w: owner is required", ErrInvalidName))
	}
	item, err := checkName(p.queue, name)
	if err != nil {
		return nil, p.fail("add content", name, err)
	}
	blob, err := p.contentType.Encode(content)
	if err != nil {
		return nil, p.fail("add content", name, err)
	}

	var stored *Item
	err = p.store.Do(ctx, func(s *docstore.Session) error {
		if err := p.ensureFolder(s); err != nil {
			return err
		}
		doc := docstore.NewDocument(p.folder, itemDocName(item), typeQueueItem)
		doc.Set(propName, name.String())
		doc.Set(propOwner, owner.String())
		doc.Set(propContent, p.contentType.Name())
		doc.Set(propExecutions, 0)
		doc.Blob = blob
		if err := s.Create(doc); err != nil {
			if errors.Is(err, docstore.ErrExists) {
				return ErrDuplicateContent
			}
			return err
		}
		var convErr error
		stored, convErr = p.toItem(doc)
		return convErr
	})
	if err != nil {
		return nil, p.fail("add content", name, err)
	}
	return stored, nil
}

// HasContent reports whether name is stored.
func (p *DocumentPersister) HasContent(ctx context.Context, name *url.URL) (bool, error) {
	path, err := p.itemPath(name)
	if err != nil {
		return false, p.fail("has content", name, err)
	}
	var exists bool
	err = p.store.Do(ctx, func(s *docstore.Session) error {
		var err error
		exists, err = s.Exists(path)
		return err
	})
	if err != nil {
		return false, p.fail("has content", name, err)
	}
	return exists, nil
}

// SetLaunched increments the execution count and stamps the execute time.
func (p *DocumentPersister) SetLaunched(ctx context.Context, name *url.URL) (*Item, error) {
	return p.modify(ctx, "set launched", name, func(doc *docstore.Document) error {
		now := p.now()
		doc.Set(propExecutions, doc.Int64(propExecutions)+1)
		doc.SetTime(propExecuted, &now)
		return nil
	})
}

// SetBlacklisted stamps the blacklist time. An item keeps its first stamp.
func (p *DocumentPersister) SetBlacklisted(ctx context.Context, name *url.URL) (*Item, error) {
	return p.modify(ctx, "set blacklisted", name, func(doc *docstore.Document) error {
		if doc.Time(propBlacklist) != nil {
			return nil
		}
		now := p.now()
		doc.SetTime(propBlacklist, &now)
		return nil
	})
}

// UpdateContent replaces the stored payload.
func (p *DocumentPersister) UpdateContent(ctx context.Context, name *url.URL, content any) (*Item, error) {
	blob, err := p.contentType.Encode(content)
	if err != nil {
		return nil, p.fail("update content", name, err)
	}
	return p.modify(ctx, "update content", name, func(doc *docstore.Document) error {
		doc.Blob = blob
		return nil
	})
}

// RemoveContent deletes name and returns its last snapshot.
func (p *DocumentPersister) RemoveContent(ctx context.Context, name *url.URL) (*Item, error) {
	path, err := p.itemPath(name)
	if err != nil {
		return nil, p.fail("remove content", name, err)
	}
	var item *Item
	err = p.store.Do(ctx, func(s *docstore.Session) error {
		doc, err := s.Get(path)
		if err != nil {
			return err
		}
		if item, err = p.toItem(doc); err != nil {
			return err
		}
		return s.Delete(path)
	})
	if err != nil {
		return nil, p.fail("remove content", name, err)
	}
	return item, nil
}

// GetInfo returns the stored item.
func (p *DocumentPersister) GetInfo(ctx context.Context, name *url.URL) (*Item, error) {
	path, err := p.itemPath(name)
	if err != nil {
		return nil, p.fail("get info", name, err)
	}
	var item *Item
	err = p.store.Do(ctx, func(s *docstore.Session) error {
		doc, err := s.Get(path)
		if err != nil {
			return err
		}
		item, err = p.toItem(doc)
		return err
	})
	if err != nil {
		return nil, p.fail("get info", name, err)
	}
	return item, nil
}

// ListKnownItems returns every item of the queue in insertion order.
func (p *DocumentPersister) ListKnownItems(ctx context.Context) ([]*Item, error) {
	items, err := p.list(ctx, docstore.Query{Parent: p.folder, Type: typeQueueItem})
	if err != nil {
		return nil, p.fail("list items", nil, err)
	}
	return items, nil
}

// ListByOwner returns the items submitted on behalf of owner.
func (p *DocumentPersister) ListByOwner(ctx context.Context, owner *url.URL) ([]*Item, error) {
	if owner == nil {
		return nil, p.fail("list by owner", nil, fmt.Errorf("%w: owner is required", ErrInvalidName))
	}
	items, err := p.list(ctx, p.ownerQuery(owner))
	if err != nil {
		return nil, p.fail("list by owner", nil, err)
	}
	return items, nil
}

// RemoveByOwner deletes the items of owner and returns how many were removed.
func (p *DocumentPersister) RemoveByOwner(ctx context.Context, owner *url.URL) (int64, error) {
	if owner == nil {
		return 0, p.fail("remove by owner", nil, fmt.Errorf("%w: owner is required", ErrInvalidName))
	}
	removed, err := p.deleteWhere(ctx, p.ownerQuery(owner))
	if err != nil {
		return 0, p.fail("remove by owner", nil, err)
	}
	return removed, nil
}

// RemoveBlacklisted deletes items blacklisted before from.
func (p *DocumentPersister) RemoveBlacklisted(ctx context.Context, from time.Time) (int64, error) {
	removed, err := p.deleteWhere(ctx, docstore.Query{
		Parent: p.folder,
		Type:   typeQueueItem,
		Before: &docstore.TimeBound{Property: propBlacklist, Time: from},
	})
	if err != nil {
		return 0, p.fail("remove blacklisted", nil, err)
	}
	return removed, nil
}

func (p *DocumentPersister) ownerQuery(owner *url.URL) docstore.Query {
	return docstore.Query{
		Parent: p.folder,
		Type:   typeQueueItem,
		Equals: map[string]string{propOwner: owner.String()},
	}
}

func (p *DocumentPersister) list(ctx context.Context, q docstore.Query) ([]*Item, error) {
	var items []*Item
	err := p.store.Do(ctx, func(s *docstore.Session) error {
		docs, err := s.Query(q)
		if err != nil {
			return err
		}
		items = make([]*Item, 0, len(docs))
		for _, doc := range docs {
			item, err := p.toItem(doc)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (p *DocumentPersister) deleteWhere(ctx context.Context, q docstore.Query) (int64, error) {
	var removed int64
	err := p.store.Do(ctx, func(s *docstore.Session) error {
		var err error
		removed, err = s.DeleteWhere(q)
		return err
	})
	return removed, err
}

func (p *DocumentPersister) modify(ctx context.Context, op string, name *url.URL, mutate func(*docstore.Document) error) (*Item, error) {
	path, err := p.itemPath(name)
	if err != nil {
		return nil, p.fail(op, name, err)
	}
	var item *Item
	err = p.store.Do(ctx, func(s *docstore.Session) error {
		doc, err := s.Get(path)
		if err != nil {
			return err
		}
		if err := mutate(doc); err != nil {
			return err
		}
		if err := s.Update(doc); err != nil {
			return err
		}
		item, err = p.toItem(doc)
		return err
	})
	if err != nil {
		return nil, p.fail(op, name, err)
	}
	return item, nil
}

func (p *DocumentPersister) toItem(doc *docstore.Document) (*Item, error) {
	name, err := ParseName(doc.String(propName))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Path, err)
	}
	owner, err := ParseOwner(doc.String(propOwner))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Path, err)
	}
	content, err := p.contentType.Decode(doc.Blob)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Path, err)
	}
	return &Item{
		Name:           name,
		Owner:          owner,
		Content:        content,
		ExecuteTime:    doc.Time(propExecuted),
		ExecutionCount: doc.Int64(propExecutions),
		BlacklistTime:  doc.Time(propBlacklist),
		CreatedAt:      doc.CreatedAt,
	}, nil
}

func (p *DocumentPersister) fail(op string, name *url.URL, err error) error {
	var qerr *Error
	if errors.As(err, &qerr) {
		return err
	}
	if errors.Is(err, docstore.ErrNotFound) {
		err = fmt.Errorf("%w: %w", ErrNoSuchContent, err)
	}
	e := &Error{Op: op, Queue: p.queue, Err: err}
	if name != nil {
		e.Name = name.String()
	}
	return e
}
