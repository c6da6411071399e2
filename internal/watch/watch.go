// Package watch turns a directory into a document inbox: every photo that
// lands in it is rectified into its own output folder and the result is
// delivered through a reply.Messenger.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/docscan-mcp/internal/config"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
	"github.com/ironsheep/docscan-mcp/internal/reply"
)

// maxTick caps how often pending files are checked for stability.
const maxTick = 250 * time.Millisecond

// Watcher processes photos dropped into a directory.
type Watcher struct {
	dir      string
	outDir   string
	workers  int
	debounce time.Duration

	ex     *rectify.Extractor
	msg    reply.Messenger
	urlFor reply.URLFunc
	log    logrus.FieldLogger
}

// New returns a Watcher for cfg.InboxDir writing below cfg.OutputDir.
func New(cfg *config.Config, ex *rectify.Extractor, m reply.Messenger, log logrus.FieldLogger) *Watcher {
	return &Watcher{
		dir:      cfg.InboxDir,
		outDir:   cfg.OutputDir,
		workers:  cfg.Workers,
		debounce: cfg.Debounce,
		ex:       ex,
		msg:      m,
		urlFor:   reply.ImageURLs(cfg.PublicBaseURL, cfg.OutputDir),
		log:      log.WithField("inbox", cfg.InboxDir),
	}
}

// OutputDir returns the folder that receives the documents of the photo at
// path: <output dir>/<stem>_<extension>, so a.jpg and a.png never share
// a folder.
func (w *Watcher) OutputDir(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if ext != "" {
		name += "_" + strings.ToLower(ext[1:])
	}
	return filepath.Join(w.outDir, name)
}

// Process extracts the documents of one photo and delivers them. The
// recipient is the photo's file name. A *rectify.DecodeError is returned for
// unreadable input; delivery failures are returned after extraction
// succeeded, together with the result.
func (w *Watcher) Process(ctx context.Context, path string) (*rectify.Result, error) {
	log := w.log.WithField("source", path)

	res, err := w.ex.ExtractFile(path, w.OutputDir(path))
	if err != nil {
		log.WithError(err).Warn("skipping unreadable photo")
		return nil, err
	}

	sent, err := reply.Deliver(ctx, w.msg, filepath.Base(path), res.Handles, w.urlFor)
	log.WithFields(logrus.Fields{
		"documents": len(res.Handles),
		"messages":  sent,
	}).Info("photo processed")
	if err != nil {
		log.WithError(err).Warn("delivery incomplete")
		return res, err
	}
	return res, nil
}

// Run processes the photos already in the inbox, then every photo created
// or rewritten there until ctx is cancelled. A photo is picked up once it
// has not changed for the debounce period. Run waits for in-flight photos
// before returning.
func (w *Watcher) Run(ctx context.Context) error {
	if w.dir == "" {
		return errors.New("no inbox directory configured")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	// Photos present before the watch starts are processed right away.
	// Photos that show up while it is being added also raise events, so
	// they wait in the queue like any new photo.
	ready, err := listImages(w.dir)
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	after, err := listImages(w.dir)
	if err != nil {
		return err
	}
	q := newQueue(w.debounce)
	for _, name := range appeared(ready, after) {
		q.touch(name, time.Now())
	}
	w.log.WithField("existing", len(ready)).Info("watching inbox")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(w.workers, 1))

	tick := maxTick
	if w.debounce > 0 && w.debounce < tick {
		tick = w.debounce
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		ready = w.dispatch(gctx, g, ready)

		select {
		case <-ctx.Done():
			g.Wait()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				g.Wait()
				return errors.New("watcher closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isSupported(name) {
				continue
			}
			q.touch(name, time.Now())

		case now := <-ticker.C:
			ready = append(ready, q.due(now)...)

		case err, ok := <-fw.Errors:
			if !ok {
				g.Wait()
				return errors.New("watcher closed")
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

// dispatch hands queued names to free workers and returns those still
// waiting.
func (w *Watcher) dispatch(ctx context.Context, g *errgroup.Group, ready []string) []string {
	for len(ready) > 0 {
		path := filepath.Join(w.dir, ready[0])
		started := g.TryGo(func() error {
			// Failures are logged by Process and must not stop the group.
			w.Process(ctx, path)
			return nil
		})
		if !started {
			break
		}
		ready = ready[1:]
	}
	return ready
}

// queue holds photos that are still being written. A name is due once it
// has seen no activity for the debounce period.
type queue struct {
	debounce time.Duration
	last     map[string]time.Time
}

func newQueue(debounce time.Duration) *queue {
	return &queue{debounce: debounce, last: map[string]time.Time{}}
}

func (q *queue) touch(name string, at time.Time) {
	q.last[name] = at
}

// due removes and returns the quiet names in sorted order.
func (q *queue) due(now time.Time) []string {
	var out []string
	for name, t := range q.last {
		if now.Sub(t) >= q.debounce {
			out = append(out, name)
			delete(q.last, name)
		}
	}
	sort.Strings(out)
	return out
}

// appeared returns the names in after that are missing from before. Both
// are sorted.
func appeared(before, after []string) []string {
	var out []string
	i := 0
	for _, name := range after {
		for i < len(before) && before[i] < name {
			i++
		}
		if i < len(before) && before[i] == name {
			continue
		}
		out = append(out, name)
	}
	return out
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// isSupported reports whether name looks like a decodable photo. Hidden
// files are skipped.
func isSupported(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, err := imaging.FormatFromFilename(name)
	return err == nil
}
