package ingest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig controls Watch.
type WatchConfig struct {
	Roots       []string // watched recursively
	InitialScan bool     // emit files already present
	SkipHidden  bool
	Debounce    time.Duration // coalesce write bursts per path
}

// Watch parses every supported document that appears under the configured
// roots until ctx is done. onParsed receives each outcome; err is nil on success.
func (s *Service) Watch(ctx context.Context, cfg WatchConfig, onParsed func(path string, doc *ParsedDocument, err error)) error {
	paths, errs, err := startWatcher(ctx, cfg)
	if err != nil {
		s.logger.Error("ingest.watch.start_failed", "roots", cfg.Roots, "error", err)
		return err
	}
	s.logger.Info("ingest.watch.start", "roots", cfg.Roots, "debounce_ms", cfg.Debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingest.watch.stop")
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("ingest.watch.error", "error", err)
		case path, ok := <-paths:
			if !ok {
				return nil
			}
			doc, err := s.ParseDocument(ctx, path)
			if onParsed != nil {
				onParsed(path, doc, err)
			}
		}
	}
}

func startWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	send := func(path string) bool {
		select {
		case evCh <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}
	wanted := func(path string) bool {
		return AllowedExt(filepath.Ext(path)) && !(cfg.SkipHidden && IsHidden(path))
	}
	// files found by the startup walk are sent once the consumer is reading
	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if cfg.SkipHidden && path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && wanted(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		var (
			mu      sync.Mutex
			timer   *time.Timer
			pending = map[string]struct{}{}
			closed  bool
		)
		sendPending := func() {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			for p := range pending {
				if !send(p) {
					return
				}
				delete(pending, p)
			}
		}
		defer func() {
			mu.Lock()
			closed = true
			if timer != nil {
				timer.Stop()
			}
			close(evCh)
			close(errCh)
			mu.Unlock()
			_ = w.Close()
		}()

		for _, p := range initial {
			if !send(p) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					// new directories are watched too; files make Add fail harmlessly
					_ = w.Add(e.Name)
				}
				if !wanted(e.Name) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				mu.Unlock()
				if cfg.Debounce > 0 {
					mu.Lock()
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(cfg.Debounce, sendPending)
					mu.Unlock()
				} else {
					sendPending()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
