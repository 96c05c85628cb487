// Package filesystem loads documents from local text files and watches
// them for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure Source implements the interfaces.
var (
	_ driven.DocumentSource  = (*Source)(nil)
	_ driven.DocumentWatcher = (*Source)(nil)
)

// Metadata keys set on every loaded document.
const (
	MetaFilename = "filename"
	MetaTitle    = "title"
	MetaFormat   = "format"
)

// documentNamespace scopes path-derived document IDs.
var documentNamespace = uuid.MustParse("1f0c5a52-8f5e-4c84-9d0b-5b2a6e4d7c31")

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("filesystem source closed")

// Source reads files under a set of paths. Directories are walked
// recursively and filtered by extension; files named explicitly are always
// included.
type Source struct {
	paths      []string
	category   string
	extensions map[string]bool
	normaliser driven.Normaliser

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
	log      logger.Scoped
}

// Option configures a Source.
type Option func(*Source)

// WithNormaliser converts file bytes to text with n. Without one, files are
// read verbatim.
func WithNormaliser(n driven.Normaliser) Option {
	return func(s *Source) { s.normaliser = n }
}

// New creates a Source from settings.
func New(settings domain.SourceSettings, opts ...Option) *Source {
	exts := make(map[string]bool, len(settings.Extensions))
	for _, e := range settings.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	s := &Source{
		paths:      settings.Paths,
		category:   settings.Category,
		extensions: exts,
		log:        logger.For("source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentID derives a stable document ID from an absolute path.
func DocumentID(path string) string {
	return uuid.NewSHA1(documentNamespace, []byte(path)).String()
}

// Load reads every matching file, sorted by path. A file that cannot be read
// or normalised is skipped and reported as a failure.
func (s *Source) Load(ctx context.Context) ([]domain.Document, []domain.ChunkFailure, error) {
	files, err := s.files()
	if err != nil {
		return nil, nil, err
	}

	docs := make([]domain.Document, 0, len(files))
	var failures []domain.ChunkFailure
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc, err := s.read(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			s.log.Warn("skipping %v", err)
			failures = append(failures, loadFailure(path, err))
			continue
		}
		docs = append(docs, doc)
	}
	s.log.Debug("loaded %d documents from %d paths, %d skipped", len(docs), len(s.paths), len(failures))
	return docs, failures, nil
}

func loadFailure(path string, err error) domain.ChunkFailure {
	return domain.ChunkFailure{
		DocumentID: DocumentID(path),
		Position:   -1,
		Stage:      domain.StageLoad,
		Err:        err,
		Source:     path,
	}
}

// files resolves the configured paths into a sorted, de-duplicated file list.
func (s *Source) files() ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, p := range s.paths {
		root, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("source path %s: %w", p, err)
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("source path %s: %w", p, err)
		}

		if !info.IsDir() {
			if !seen[root] {
				seen[root] = true
				out = append(out, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if s.matches(path) && !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

func (s *Source) matches(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

func (s *Source) metadata(path string) domain.Metadata {
	return domain.Metadata{
		Source:   path,
		Category: s.category,
		Extra:    map[string]string{MetaFilename: filepath.Base(path)},
	}
}

func (s *Source) read(ctx context.Context, path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc := domain.Document{
		ID:       DocumentID(path),
		Text:     string(data),
		Metadata: s.metadata(path),
	}
	if s.normaliser == nil {
		return doc, nil
	}

	res, err := s.normaliser.Normalise(ctx, path, data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("normalise %s: %w", path, err)
	}
	doc.Text = res.Text
	if res.Title != "" {
		doc.Metadata.Extra[MetaTitle] = res.Title
	}
	if res.Format != "" {
		doc.Metadata.Extra[MetaFormat] = res.Format
	}
	return doc, nil
}

// watchScope records what a watch covers: files named directly in paths and
// directory roots whose matching descendants are reported.
type watchScope struct {
	files map[string]bool
	dirs  []string
}

func (sc *watchScope) wants(s *Source, path string) bool {
	if sc.files[path] {
		return true
	}
	if !s.matches(path) {
		return false
	}
	for _, root := range sc.dirs {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// Watch reports created, modified and removed files until ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan domain.DocumentChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	scope := &watchScope{files: make(map[string]bool)}
	for _, p := range s.paths {
		if err := s.addRoot(watcher, p, scope); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}
	s.watchers = append(s.watchers, watcher)

	changes := make(chan domain.DocumentChange)
	go s.loop(ctx, watcher, scope, changes)
	return changes, nil
}

func (s *Source) addRoot(w *fsnotify.Watcher, p string, scope *watchScope) error {
	root, err := filepath.Abs(p)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		scope.files[root] = true
		return w.Add(filepath.Dir(root))
	}
	scope.dirs = append(scope.dirs, root)
	return addTree(w, root)
}

// addTree watches root and every non-hidden directory below it.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (s *Source) loop(ctx context.Context, w *fsnotify.Watcher, scope *watchScope, out chan<- domain.DocumentChange) {
	defer close(out)
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("watch error: %v", err)

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			change, ok := s.translate(ctx, w, ev, scope)
			if !ok {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translate maps a raw event onto a document change. New directories are
// added to the watch and produce no change.
func (s *Source) translate(
	ctx context.Context,
	w *fsnotify.Watcher,
	ev fsnotify.Event,
	scope *watchScope,
) (domain.DocumentChange, bool) {
	path := ev.Name

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if !scope.wants(s, path) {
			return domain.DocumentChange{}, false
		}
		return domain.DocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.Document{ID: DocumentID(path), Metadata: s.metadata(path)},
		}, true

	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return domain.DocumentChange{}, false
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && !strings.HasPrefix(info.Name(), ".") {
				if err := addTree(w, path); err != nil {
					s.log.Warn("watch new directory %s: %v", path, err)
				}
			}
			return domain.DocumentChange{}, false
		}
		if !scope.wants(s, path) {
			return domain.DocumentChange{}, false
		}
		kind := domain.ChangeUpdated
		if ev.Has(fsnotify.Create) {
			kind = domain.ChangeCreated
		}
		doc, err := s.read(ctx, path)
		if err != nil {
			s.log.Warn("%v", err)
			return domain.DocumentChange{
				Type:     kind,
				Document: domain.Document{ID: DocumentID(path), Metadata: s.metadata(path)},
				Err:      err,
			}, true
		}
		return domain.DocumentChange{Type: kind, Document: doc}, true
	}
	return domain.DocumentChange{}, false
}

// Close stops all active watches. Further Watch calls fail with ErrClosed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for _, w := range s.watchers {
		errs = append(errs, w.Close())
	}
	s.watchers = nil
	return errors.Join(errs...)
}
