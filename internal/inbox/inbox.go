// Package inbox turns job files dropped into a directory into queued jobs.
//
// Each *.json, *.yaml or *.yml file holds one job or a list of jobs. A file is
// all-or-nothing: if any job in it fails validation, nothing is created and the
// file moves to failed/. Otherwise it moves to processed/. Writers should create
// the file under another extension and rename it into place.
package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/udaykr117/smartsched/internal/logging"
	"github.com/udaykr117/smartsched/internal/model"
	"github.com/udaykr117/smartsched/internal/store"
)

// ErrRejected marks a file that could not be turned into jobs.
var ErrRejected = errors.New("rejected inbox file")

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// JobCreator persists a new job.
type JobCreator interface {
	CreateJob(ctx context.Context, job *model.Job) error
}

type Watcher struct {
	dir       string
	jobs      JobCreator
	logger    *logging.Logger
	onCreated func(ctx context.Context, n int)
}

type Option func(*Watcher)

func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) { w.logger = l.With("inbox") }
}

// OnCreated registers fn to run after a file created at least one job.
func OnCreated(fn func(ctx context.Context, n int)) Option {
	return func(w *Watcher) { w.onCreated = fn }
}

func New(dir string, jobs JobCreator, opts ...Option) *Watcher {
	w := &Watcher{dir: dir, jobs: jobs, logger: logging.Discard()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ParseJobs decodes a single job or a list of jobs. JSON input is accepted
// since it is valid YAML.
func ParseJobs(data []byte) ([]model.JobInput, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("decode jobs: empty document")
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []model.JobInput
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode job list: %w", err)
		}
		if len(list) == 0 {
			return nil, errors.New("decode jobs: empty list")
		}
		return list, nil
	case yaml.MappingNode:
		var in model.JobInput
		if err := root.Decode(&in); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		return []model.JobInput{in}, nil
	default:
		return nil, errors.New("decode jobs: expected a job or a list of jobs")
	}
}

func accepted(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ProcessFile ingests one file and returns how many jobs it created.
// Empty files are left in place; the writer has not finished yet.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, nil
	}

	jobs, err := w.validate(data)
	if err != nil {
		w.logger.Warnf("rejected file=%s err=%v", filepath.Base(path), err)
		if mvErr := w.move(path, failedDir); mvErr != nil {
			return 0, mvErr
		}
		return 0, fmt.Errorf("%w %s: %w", ErrRejected, filepath.Base(path), err)
	}

	created := 0
	for i := range jobs {
		err := w.jobs.CreateJob(ctx, &jobs[i])
		if errors.Is(err, store.ErrDuplicate) {
			w.logger.Warnf("skipped duplicate job=%s file=%s", jobs[i].ID, filepath.Base(path))
			continue
		}
		if err != nil {
			return created, err
		}
		created++
		w.logger.Infof("queued job=%s name=%q file=%s", jobs[i].ID, jobs[i].Name, filepath.Base(path))
	}
	if err := w.move(path, processedDir); err != nil {
		return created, err
	}
	return created, nil
}

func (w *Watcher) validate(data []byte) ([]model.Job, error) {
	inputs, err := ParseJobs(data)
	if err != nil {
		return nil, err
	}
	jobs := make([]model.Job, 0, len(inputs))
	for i, in := range inputs {
		job, err := in.ToJob()
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (w *Watcher) move(path, sub string) error {
	dst := filepath.Join(w.dir, sub)
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dst, err)
	}
	if err := os.Rename(path, filepath.Join(dst, filepath.Base(path))); err != nil {
		return fmt.Errorf("move %s to %s: %w", filepath.Base(path), sub, err)
	}
	return nil
}

// Scan processes every file currently in the inbox, in name order.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && accepted(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		n, err := w.ProcessFile(ctx, filepath.Join(w.dir, name))
		total += n
		if err != nil && !isRejection(err) {
			return total, err
		}
	}
	return total, nil
}

func (w *Watcher) handle(ctx context.Context, path string) {
	n, err := w.ProcessFile(ctx, path)
	if err != nil && !isRejection(err) {
		w.logger.Errorf("process file=%s err=%v", filepath.Base(path), err)
	}
	if n > 0 && w.onCreated != nil {
		w.onCreated(ctx, n)
	}
}

// Run watches the inbox until ctx is cancelled. Files already present are
// processed first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", w.dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Infof("watching dir=%s", w.dir)

	n, err := w.Scan(ctx)
	if err != nil {
		w.logger.Errorf("initial scan err=%v", err)
	}
	if n > 0 && w.onCreated != nil {
		w.onCreated(ctx, n)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !accepted(event.Name) || filepath.Dir(event.Name) != filepath.Clean(w.dir) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debugf("fsnotify event=%s file=%s", event.Op, event.Name)
				w.handle(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("fsnotify error=%v", err)
		}
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}
