package mailbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/colonyops/comb/pkg/fsutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	inboxDir   = "inbox"
	archiveDir = "archive"
	fileExt    = ".md"
)

// Options configures a Mailbox.
type Options struct {
	Clock    clock.Clock
	Observer Observer
}

// Mailbox is the file-backed message store rooted at a "messages" directory.
// An in-memory cache mirrors the files; mutations are serialized.
type Mailbox struct {
	root  string
	clock clock.Clock
	obs   Observer
	log   zerolog.Logger

	init  singleflight.Group
	mu    sync.Mutex
	ready bool
	cache map[string]Message
	scans int
}

// New creates a Mailbox rooted at dir. Call Initialize before use; every
// operation initializes lazily otherwise.
func New(dir string, log zerolog.Logger, opts Options) *Mailbox {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Mailbox{
		root:  dir,
		clock: opts.Clock,
		obs:   opts.Observer,
		log:   log.With().Str("component", "mailbox").Logger(),
		cache: make(map[string]Message),
	}
}

// Dir returns the mailbox root directory.
func (m *Mailbox) Dir() string { return m.root }

// Initialize creates the inbox and archive directories, moves legacy flat
// files into place and loads every message. It is idempotent and concurrent
// callers share a single run.
func (m *Mailbox) Initialize(ctx context.Context) error {
	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()
	if ready {
		return nil
	}

	_, err, _ := m.init.Do("init", func() (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ready {
			return nil, nil
		}

		for _, dir := range []string{inboxDir, archiveDir} {
			if err := os.MkdirAll(filepath.Join(m.root, dir), 0o755); err != nil {
				return nil, errs.IO("create directory", filepath.Join(m.root, dir), err)
			}
		}
		if err := m.migrateLegacy(); err != nil {
			return nil, err
		}
		if err := m.loadLocked(ctx); err != nil {
			return nil, err
		}
		m.ready = true
		return nil, nil
	})
	return err
}

// Reload discards the cache and rescans both directories.
func (m *Mailbox) Reload(ctx context.Context) error {
	if err := m.Initialize(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx)
}

// migrateLegacy moves message files stored directly under the root into the
// inbox (or the archive, when their header says so).
func (m *Mailbox) migrateLegacy() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return errs.IO("read directory", m.root, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) || fsutil.IsTempFile(e.Name()) {
			continue
		}

		src := filepath.Join(m.root, e.Name())
		dest := inboxDir
		if data, err := os.ReadFile(src); err == nil {
			if msg, err := Decode(data, idFromName(e.Name())); err == nil && msg.Archived {
				dest = archiveDir
			}
		}

		dst := filepath.Join(m.root, dest, e.Name())
		if _, err := os.Stat(dst); err == nil {
			m.log.Warn().Str("file", src).Msg("legacy message already migrated, leaving in place")
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return errs.IO("migrate message", src, err)
		}
		m.log.Info().Str("file", e.Name()).Str("dest", dest).Msg("migrated legacy message")
	}
	return nil
}

func (m *Mailbox) loadLocked(ctx context.Context) error {
	m.scans++
	cache := make(map[string]Message)

	for _, dir := range []string{inboxDir, archiveDir} {
		if err := ctx.Err(); err != nil {
			return err
		}

		full := filepath.Join(m.root, dir)
		entries, err := os.ReadDir(full)
		if err != nil {
			return errs.IO("read directory", full, err)
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) || fsutil.IsTempFile(e.Name()) {
				continue
			}

			path := filepath.Join(full, e.Name())
			msg, err := readMessage(path)
			if err != nil {
				m.log.Warn().Err(err).Str("file", path).Msg("skipping unreadable message")
				continue
			}

			// The directory decides the archived flag so that a crash between
			// rewriting and moving a file is self-healing.
			msg.Archived = dir == archiveDir

			if _, dup := cache[msg.ID]; dup {
				m.log.Warn().Str("id", msg.ID).Msg("message present in inbox and archive, using archived copy")
			}
			cache[msg.ID] = msg
		}
	}

	m.cache = cache
	m.log.Debug().Int("count", len(cache)).Msg("mailbox loaded")
	return nil
}

func readMessage(path string) (Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Message{}, err
	}

	id := idFromName(filepath.Base(path))
	msg, err := Decode(data, id)
	if err != nil {
		return Message{}, err
	}
	// The file name is authoritative so the cache key always maps to the file.
	msg.ID = id

	if msg.Timestamp.IsZero() {
		if info, err := os.Stat(path); err == nil {
			msg.Timestamp = info.ModTime().UTC()
		}
	}
	return msg, nil
}

func idFromName(name string) string {
	return strings.TrimSuffix(name, fileExt)
}

func (m *Mailbox) path(id string, archived bool) string {
	dir := inboxDir
	if archived {
		dir = archiveDir
	}
	return filepath.Join(m.root, dir, id+fileExt)
}

// Send stores msg, assigning an id and timestamp when unset, and notifies
// observers. The stored message is returned.
func (m *Mailbox) Send(ctx context.Context, msg Message) (Message, error) {
	if err := m.Initialize(ctx); err != nil {
		return Message{}, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.clock.Now().UTC()
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	if msg.Archived {
		msg.Read = true
	}

	m.mu.Lock()
	if _, exists := m.cache[msg.ID]; exists {
		m.mu.Unlock()
		return Message{}, errs.Invalid("message", "id %q already exists", msg.ID)
	}
	path := m.path(msg.ID, msg.Archived)
	if err := fsutil.WriteFileAtomic(path, Encode(msg), 0o644); err != nil {
		m.mu.Unlock()
		return Message{}, errs.IO("write message", path, err)
	}
	m.cache[msg.ID] = msg
	m.mu.Unlock()

	m.log.Info().
		Ctx(ctx).
		Str("id", msg.ID).
		Str("from", msg.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("message sent")

	m.obs.MessageReceived(msg)
	m.obs.MessageArrived(msg.To, msg)
	return msg, nil
}

// Reply sends body to the sender of message id with a "Re:" subject.
func (m *Mailbox) Reply(ctx context.Context, id, from, body string) (Message, error) {
	orig, err := m.Get(ctx, id)
	if err != nil {
		return Message{}, err
	}
	return m.Send(ctx, Message{
		From:    from,
		To:      orig.From,
		Subject: ReplySubject(orig.Subject),
		Body:    body,
	})
}

// Get returns the message with id.
func (m *Mailbox) Get(ctx context.Context, id string) (Message, error) {
	if err := m.Initialize(ctx); err != nil {
		return Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.cache[id]
	if !ok {
		return Message{}, errs.NotFound("message", id)
	}
	return msg, nil
}

// Inbox returns the non-archived messages addressed to agent, newest first.
func (m *Mailbox) Inbox(ctx context.Context, agent string) ([]Message, error) {
	return m.query(ctx, func(msg Message) bool { return msg.To == agent && !msg.Archived })
}

// Archived returns the archived messages addressed to agent, newest first.
func (m *Mailbox) Archived(ctx context.Context, agent string) ([]Message, error) {
	return m.query(ctx, func(msg Message) bool { return msg.To == agent && msg.Archived })
}

// Sent returns the messages sent by agent, newest first.
func (m *Mailbox) Sent(ctx context.Context, agent string) ([]Message, error) {
	return m.query(ctx, func(msg Message) bool { return msg.From == agent })
}

// Unread returns the unread inbox messages for agent, newest first.
func (m *Mailbox) Unread(ctx context.Context, agent string) ([]Message, error) {
	return m.query(ctx, func(msg Message) bool { return msg.To == agent && !msg.Read && !msg.Archived })
}

func (m *Mailbox) query(ctx context.Context, keep func(Message) bool) ([]Message, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	out := make([]Message, 0, len(m.cache))
	for _, msg := range m.cache {
		if keep(msg) {
			out = append(out, msg)
		}
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b Message) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// MarkRead flags message id as read. It returns false when no such message
// exists.
func (m *Mailbox) MarkRead(ctx context.Context, id string) (bool, error) {
	if err := m.Initialize(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.cache[id]
	if !ok {
		return false, nil
	}
	if msg.Read {
		return true, nil
	}

	msg.Read = true
	path := m.path(id, msg.Archived)
	if err := fsutil.WriteFileAtomic(path, Encode(msg), 0o644); err != nil {
		return false, errs.IO("write message", path, err)
	}
	m.cache[id] = msg
	return true, nil
}

// Archive marks message id read and moves it to the archive.
func (m *Mailbox) Archive(ctx context.Context, id string) (Message, error) {
	return m.setArchived(ctx, id, true)
}

// Unarchive moves message id back to the inbox.
func (m *Mailbox) Unarchive(ctx context.Context, id string) (Message, error) {
	return m.setArchived(ctx, id, false)
}

func (m *Mailbox) setArchived(ctx context.Context, id string, archived bool) (Message, error) {
	if err := m.Initialize(ctx); err != nil {
		return Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.cache[id]
	if !ok {
		return Message{}, errs.NotFound("message", id)
	}
	if msg.Archived == archived && (msg.Read || !archived) {
		return msg, nil
	}

	updated := msg
	updated.Archived = archived
	if archived {
		updated.Read = true
	}

	if err := m.relocate(updated, msg.Archived); err != nil {
		return Message{}, err
	}
	m.cache[id] = updated

	m.log.Debug().Str("id", id).Bool("archived", archived).Msg("message relocated")
	return updated, nil
}

// relocate rewrites msg in its current directory and then renames it into
// the directory matching msg.Archived. Both steps are atomic on a single
// filesystem; a crash between them leaves a complete file that loads with
// the flags of the directory it sits in.
func (m *Mailbox) relocate(msg Message, fromArchived bool) error {
	src := m.path(msg.ID, fromArchived)
	if err := fsutil.WriteFileAtomic(src, Encode(msg), 0o644); err != nil {
		return errs.IO("write message", src, err)
	}
	if fromArchived == msg.Archived {
		return nil
	}

	dst := m.path(msg.ID, msg.Archived)
	if err := os.Rename(src, dst); err != nil {
		return errs.IO("move message", src, err)
	}
	return nil
}

// Delete removes message id from the cache and from both directories.
func (m *Mailbox) Delete(ctx context.Context, id string) error {
	if err := m.Initialize(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cache[id]; !ok {
		return errs.NotFound("message", id)
	}

	var errList []error
	for _, archived := range []bool{false, true} {
		path := m.path(id, archived)
		if _, err := fsutil.RemoveIfExists(path); err != nil {
			errList = append(errList, errs.IO("remove message", path, err))
		}
	}
	if err := errors.Join(errList...); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}

	delete(m.cache, id)
	m.log.Info().Ctx(ctx).Str("id", id).Msg("message deleted")
	return nil
}
