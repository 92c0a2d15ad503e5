package gitshell

import (
	"context"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
)

// BranchCache tracks the current branch for one working directory, refreshed
// on fsnotify events under .git instead of shelling out to `git` on every
// guard invocation. It follows OpenCode's vcs.Watcher structure (watch
// the git dir, recompute branch on HEAD-adjacent writes, keep the result
// behind a mutex) but drops the watcher's outbound event-bus publish, since
// nothing in the Gateway subscribes to branch-change notifications — guards
// just want a fast Current().
type BranchCache struct {
	mu      sync.RWMutex
	dir     string
	current string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewBranchCache creates a cache for dir. Returns nil, nil if dir is not
// inside a git working tree; returns an error only if fsnotify setup fails
// on a directory that is a git repo.
func NewBranchCache(ctx context.Context, dir string) (*BranchCache, error) {
	gitDir := GitDir(ctx, dir)
	if gitDir == "" {
		return nil, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(gitDir); err != nil {
		w.Close()
		return nil, err
	}

	c := &BranchCache{
		dir:     dir,
		current: CurrentBranch(ctx, dir),
		watcher: w,
		stopCh:  make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *BranchCache) run() {
	for {
		select {
		case <-c.stopCh:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && strings.Contains(ev.Name, "HEAD") {
				c.refresh()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			gatewaylog.Warn().Err(err).Str("dir", c.dir).Msg("branch cache watch error")
		}
	}
}

func (c *BranchCache) refresh() {
	branch := CurrentBranch(context.Background(), c.dir)
	c.mu.Lock()
	c.current = branch
	c.mu.Unlock()
}

// Current returns the last-observed branch name.
func (c *BranchCache) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Close stops the underlying watcher.
func (c *BranchCache) Close() error {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	return c.watcher.Close()
}
