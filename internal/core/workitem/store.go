package workitem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/comb/internal/core/errs"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/colonyops/comb/pkg/fsutil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const fileExt = ".md"

var idPattern = regexp.MustCompile(`^WI-(\d{4})-(\d+)$`)

// CreateInput holds the fields accepted when creating an item.
type CreateInput struct {
	Title              string
	Description        string
	Priority           string
	Type               string
	Assignee           string
	Reviewer           string
	Tags               []string
	EstimatedHours     *float64
	FeatureRef         string
	AcceptanceCriteria []string
}

// UpdateInput merges every non-nil field into an item. Status changes go
// through Move.
type UpdateInput struct {
	Title          *string
	Description    *string
	Priority       *string
	Type           *string
	Assignee       *string
	Reviewer       *string
	Tags           *[]string
	EstimatedHours *float64
	FeatureRef     *string
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status   Status
	Assignee string
	Tag      string
}

// Options configures a Store.
type Options struct {
	Clock    clock.Clock
	Observer Observer
}

// Store persists work items under <root>/<status>/<id>.md. Files are the
// source of truth; reads always go to disk so external edits are visible.
type Store struct {
	root  string
	clock clock.Clock
	obs   Observer
	log   zerolog.Logger

	init    singleflight.Group
	mu      sync.Mutex
	ready   bool
	seqYear int
	seq     int
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, log zerolog.Logger, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Store{
		root:  dir,
		clock: opts.Clock,
		obs:   opts.Observer,
		log:   log.With().Str("component", "workitems").Logger(),
	}
}

// Dir returns the store root directory.
func (s *Store) Dir() string { return s.root }

// Initialize creates every status directory and primes the id sequence.
// It is idempotent and safe to call concurrently.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if ready {
		return nil
	}

	_, err, _ := s.init.Do("init", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ready {
			return nil, nil
		}

		for _, st := range Statuses() {
			dir := filepath.Join(s.root, string(st))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errs.IO("create directory", dir, err)
			}
		}
		if err := s.rescanSequence(ctx, s.clock.Now().Year()); err != nil {
			return nil, err
		}
		s.ready = true
		return nil, nil
	})
	return err
}

// rescanSequence sets the sequence to the highest number used for year.
func (s *Store) rescanSequence(ctx context.Context, year int) error {
	items, err := s.scan(ctx, "")
	if err != nil {
		return err
	}

	highest := 0
	for _, it := range items {
		m := idPattern.FindStringSubmatch(it.ID)
		if m == nil || m[1] != strconv.Itoa(year) {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > highest {
			highest = n
		}
	}

	s.seqYear = year
	s.seq = highest
	return nil
}

func (s *Store) nextID(ctx context.Context, now time.Time) (string, error) {
	if now.Year() != s.seqYear {
		if err := s.rescanSequence(ctx, now.Year()); err != nil {
			return "", err
		}
	}
	for {
		s.seq++
		id := fmt.Sprintf("WI-%d-%03d", s.seqYear, s.seq)
		if _, _, err := s.locate(id); errs.IsNotFound(err) {
			return id, nil
		} else if err != nil {
			return "", err
		}
	}
}

func (s *Store) path(id string, st Status) string {
	return filepath.Join(s.root, string(st), id+fileExt)
}

// locate finds the file for id and returns it with the status implied by
// its directory.
func (s *Store) locate(id string) (string, Status, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", "", errs.NotFound("work item", id)
	}
	for _, st := range Statuses() {
		p := s.path(id, st)
		if _, err := os.Stat(p); err == nil {
			return p, st, nil
		} else if !os.IsNotExist(err) {
			return "", "", errs.IO("stat", p, err)
		}
	}
	return "", "", errs.NotFound("work item", id)
}

func readItem(path string, st Status) (Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, errs.IO("read work item", path, err)
	}

	id := strings.TrimSuffix(filepath.Base(path), fileExt)
	item, err := Decode(data, id)
	if err != nil {
		return Item{}, &errs.ValidationError{Kind: "work item", Path: path, Reason: err.Error()}
	}
	item.ID = id
	item.Status = st
	item.FilePath = path
	return item, nil
}

func (s *Store) write(item Item) error {
	data, err := Encode(item)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(item.FilePath, data, 0o644); err != nil {
		return errs.IO("write work item", item.FilePath, err)
	}
	return nil
}

// scan reads every item in one status directory, or all of them when st is
// empty. Unreadable files are logged and skipped.
func (s *Store) scan(ctx context.Context, st Status) ([]Item, error) {
	statuses := Statuses()
	if st != "" {
		statuses = []Status{st}
	}

	var items []Item
	for _, status := range statuses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(s.root, string(status))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errs.IO("read directory", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) || fsutil.IsTempFile(e.Name()) {
				continue
			}
			item, err := readItem(filepath.Join(dir, e.Name()), status)
			if err != nil {
				s.log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable work item")
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// Create persists a new item in todo.
func (s *Store) Create(ctx context.Context, in CreateInput) (Item, error) {
	if err := s.Initialize(ctx); err != nil {
		return Item{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Item{}, errs.Invalid("work item", "title is required")
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return Item{}, err
	}
	typ, err := ParseType(in.Type)
	if err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	now := s.clock.Now().UTC()
	id, err := s.nextID(ctx, now)
	if err != nil {
		s.mu.Unlock()
		return Item{}, err
	}

	item := Item{
		ID:             id,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Priority:       priority,
		Status:         StatusTodo,
		Type:           typ,
		Assignee:       strings.TrimSpace(in.Assignee),
		Reviewer:       strings.TrimSpace(in.Reviewer),
		Tags:           cleanTags(in.Tags),
		Created:        now,
		EstimatedHours: in.EstimatedHours,
		FeatureRef:     strings.TrimSpace(in.FeatureRef),
		FilePath:       s.path(id, StatusTodo),
		Body:           seedBody(in.Description, in.AcceptanceCriteria),
	}
	err = s.write(item)
	s.mu.Unlock()
	if err != nil {
		return Item{}, err
	}

	s.log.Info().Str("id", id).Str("title", title).Msg("work item created")
	s.obs.ItemChanged(item, ChangeCreated, "")
	return item, nil
}

// Get reads one item.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	if err := s.Initialize(ctx); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id string) (Item, error) {
	p, st, err := s.locate(id)
	if err != nil {
		return Item{}, err
	}
	return readItem(p, st)
}

// List returns the items matching f, newest created first.
func (s *Store) List(ctx context.Context, f Filter) ([]Item, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.IsValid() {
		return nil, errs.Invalid("status", "%q is not one of %s", f.Status, joinEnum(Statuses()))
	}

	s.mu.Lock()
	items, err := s.scan(ctx, f.Status)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	items = slices.DeleteFunc(items, func(it Item) bool {
		if f.Assignee != "" && it.Assignee != f.Assignee {
			return true
		}
		return f.Tag != "" && !it.HasTag(f.Tag)
	})
	slices.SortFunc(items, func(a, b Item) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return items, nil
}

// mutate loads id, applies fn and writes the result in place. fn returning
// false means nothing changed and skips the write.
func (s *Store) mutate(ctx context.Context, id string, fn func(*Item) (bool, error)) (Item, error) {
	if err := s.Initialize(ctx); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	item, err := s.getLocked(id)
	if err != nil {
		s.mu.Unlock()
		return Item{}, err
	}
	changed, err := fn(&item)
	if err == nil && changed {
		err = s.write(item)
	}
	s.mu.Unlock()
	if err != nil {
		return Item{}, err
	}

	if changed {
		s.obs.ItemChanged(item, ChangeUpdated, "")
	}
	return item, nil
}

// Update merges the provided fields into item id.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (Item, error) {
	return s.mutate(ctx, id, func(it *Item) (bool, error) {
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return false, errs.Invalid("work item", "title cannot be empty")
			}
			it.Title = title
		}
		if in.Priority != nil {
			p, err := ParsePriority(*in.Priority)
			if err != nil {
				return false, err
			}
			it.Priority = p
		}
		if in.Type != nil {
			t, err := ParseType(*in.Type)
			if err != nil {
				return false, err
			}
			it.Type = t
		}
		if in.Description != nil {
			it.Description = strings.TrimSpace(*in.Description)
			it.Body = replaceSection(it.Body, sectionDescription, it.Description)
		}
		if in.Assignee != nil {
			it.Assignee = strings.TrimSpace(*in.Assignee)
		}
		if in.Reviewer != nil {
			it.Reviewer = strings.TrimSpace(*in.Reviewer)
		}
		if in.Tags != nil {
			it.Tags = cleanTags(*in.Tags)
		}
		if in.EstimatedHours != nil {
			h := *in.EstimatedHours
			it.EstimatedHours = &h
		}
		if in.FeatureRef != nil {
			it.FeatureRef = strings.TrimSpace(*in.FeatureRef)
		}
		return true, nil
	})
}

// Assign sets the assignee and, when non-empty, the reviewer.
func (s *Store) Assign(ctx context.Context, id, assignee, reviewer string) (Item, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return Item{}, errs.Invalid("work item", "assignee is required")
	}
	return s.mutate(ctx, id, func(it *Item) (bool, error) {
		it.Assignee = assignee
		if r := strings.TrimSpace(reviewer); r != "" {
			it.Reviewer = r
		}
		return true, nil
	})
}

// Unassign clears the assignee.
func (s *Store) Unassign(ctx context.Context, id string) (Item, error) {
	return s.mutate(ctx, id, func(it *Item) (bool, error) {
		if it.Assignee == "" {
			return false, nil
		}
		it.Assignee = ""
		return true, nil
	})
}

// AddNote appends a timestamped note under the Notes section.
func (s *Store) AddNote(ctx context.Context, id, author, text string) (Item, error) {
	if strings.TrimSpace(text) == "" {
		return Item{}, errs.Invalid("note", "text is required")
	}
	if strings.TrimSpace(author) == "" {
		author = "unknown"
	}
	return s.mutate(ctx, id, func(it *Item) (bool, error) {
		it.Body = appendNote(it.Body, s.noteStamp(), author, text)
		return true, nil
	})
}

func (s *Store) noteStamp() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}

// Move transitions item id to status. Moving to the current status returns
// the item without touching the filesystem.
func (s *Store) Move(ctx context.Context, id string, to Status) (Item, error) {
	return s.move(ctx, id, to, nil)
}

// Cancel records reason as a note and moves the item to cancelled.
func (s *Store) Cancel(ctx context.Context, id, reason string) (Item, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	return s.move(ctx, id, StatusCancelled, func(it *Item) {
		it.Body = appendNote(it.Body, s.noteStamp(), "system", "Cancelled: "+reason)
	})
}

func (s *Store) move(ctx context.Context, id string, to Status, edit func(*Item)) (Item, error) {
	if !to.IsValid() {
		return Item{}, errs.Invalid("status", "%q is not one of %s", to, joinEnum(Statuses()))
	}
	if err := s.Initialize(ctx); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	item, err := s.getLocked(id)
	if err != nil {
		s.mu.Unlock()
		return Item{}, err
	}
	from := item.Status
	if from == to && edit == nil {
		s.mu.Unlock()
		return item, nil
	}

	if edit != nil {
		edit(&item)
	}
	item.transition(to, s.clock.Now().UTC())
	err = s.relocate(&item, from)
	s.mu.Unlock()
	if err != nil {
		return Item{}, err
	}

	s.log.Info().Str("id", id).Str("from", string(from)).Str("to", string(to)).Msg("work item moved")
	if from == to {
		s.obs.ItemChanged(item, ChangeUpdated, "")
	} else {
		s.obs.ItemChanged(item, ChangeMoved, from)
	}
	return item, nil
}

// relocate rewrites item in its current directory, then renames it into the
// directory for item.Status. The directory wins on load, so a crash between
// the two steps leaves the item in its old status with intact content.
func (s *Store) relocate(item *Item, from Status) error {
	item.FilePath = s.path(item.ID, from)
	if err := s.write(*item); err != nil {
		return err
	}
	if from == item.Status {
		return nil
	}

	dst := s.path(item.ID, item.Status)
	if err := os.Rename(item.FilePath, dst); err != nil {
		return errs.IO("move work item", item.FilePath, err)
	}
	item.FilePath = dst
	return nil
}

// Delete removes item id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	item, err := s.getLocked(id)
	if err == nil {
		if rmErr := os.Remove(item.FilePath); rmErr != nil {
			err = errs.IO("remove work item", item.FilePath, rmErr)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.Info().Str("id", id).Msg("work item deleted")
	s.obs.ItemChanged(item, ChangeDeleted, "")
	return nil
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
