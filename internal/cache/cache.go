package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mvp-joe/codebraid/internal/collection"
)

// Cache manages one build's on-disk cache directory: `<cacheRoot>/<key>/`,
// its per-hash_root archives, its lock-protected index, and the files
// this build has itself created (tracked so a no_cache build can remove
// exactly what it wrote and nothing else).
type Cache struct {
	Version string
	Root    string
	Key     string

	dir  string
	lock *flock.Flock
	memo *decodeMemo

	oldIndex *indexFile
	// files accumulates every path this build has written into dir, used
	// to compute the new index at FinalizeIndex and, in no_cache mode, to
	// know what Cleanup must remove.
	files map[string]bool
}

// New constructs a Cache rooted at cacheRoot for the build whose cache
// key is key (see Key). cacheRoot defaults to "~/.codebraid/cache" when
// empty, following the cache directory default the teacher repo uses for
// its own cache root.
func New(cacheRoot, key, version string) *Cache {
	root := cacheRoot
	if root == "" {
		home, _ := os.UserHomeDir()
		root = filepath.Join(home, ".codebraid", "cache")
	}
	return &Cache{
		Version: version,
		Root:    root,
		Key:     key,
		dir:     filepath.Join(root, key),
		files:   map[string]bool{},
	}
}

func (c *Cache) lockPath() string { return filepath.Join(c.dir, c.Key+".lock") }
func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, indexArchiveName(c.Key))
}
func (c *Cache) archivePath(hashRoot string) string {
	return filepath.Join(c.dir, hashRootArchiveName(hashRoot))
}

// Prepare makes the cache directory ready for this build: it creates
// `dir` if missing, acquires the exclusive lock, and validates the old
// index (if any) against originPaths and this binary's Version. A stale
// index (version mismatch, different origin set, or a listed file that
// no longer exists) is discarded; every file it named is removed — never
// a recursive directory delete — and the build starts from a fresh
// index.
func (c *Cache) Prepare(originPaths []string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache: creating %s: %w", c.dir, err)
	}

	lock, err := acquireLock(c.lockPath())
	if err != nil {
		return err
	}
	c.lock = lock

	memo, err := newDecodeMemo()
	if err != nil {
		releaseLock(c.lock)
		return err
	}
	c.memo = memo

	old, err := readIndexFile(c.indexPath())
	if err != nil {
		releaseLock(c.lock)
		return fmt.Errorf("cache: reading index: %w", err)
	}

	if old != nil && indexStillValid(old, originPaths, c.Version) {
		c.oldIndex = old
		return nil
	}

	if old != nil {
		c.wipeListedFiles(old.Files)
	}
	c.oldIndex = nil
	return nil
}

func indexStillValid(old *indexFile, originPaths []string, version string) bool {
	if old.CodebraidVersion != version {
		return false
	}
	if !sameSet(old.Origins, originPaths) {
		return false
	}
	for _, f := range old.Files {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

// wipeListedFiles removes exactly the files a stale index named. Per the
// specification this is never a recursive directory delete: only
// individually-named files are touched.
func (c *Cache) wipeListedFiles(files []string) {
	for _, f := range files {
		_ = os.Remove(f)
	}
}

// Load attempts a cache hit for sess (identified by its finalised Hash
// and HashRoot). A session that never computed a hash (prevent_exec) is
// never a candidate. Returns whether the session's outputs were
// rehydrated; on a miss sess is left untouched and must be executed.
func (c *Cache) Load(sess *collection.Session) (bool, error) {
	if sess.HashRoot == "" || sess.Hash == "" {
		return false, nil
	}

	cf, err := c.loadArchive(sess.HashRoot)
	if err != nil {
		return false, err
	}

	entry, ok := cf.Cache[sess.Hash]
	if !ok {
		return false, nil
	}

	applyToSession(entry, sess)
	c.noteFile(c.archivePath(sess.HashRoot))
	for _, f := range richOutputFiles(sess) {
		c.noteFile(f)
	}
	return true, nil
}

func (c *Cache) loadArchive(hashRoot string) (*cacheFile, error) {
	if cf, ok := c.memo.get(hashRoot); ok {
		return cf, nil
	}
	cf, err := readCacheFile(c.archivePath(hashRoot))
	if err != nil {
		return nil, fmt.Errorf("cache: loading %s: %w", hashRoot, err)
	}
	c.memo.set(hashRoot, cf)
	return cf, nil
}

// Update persists a just-executed session's outputs into its hash_root
// archive, unless the session's rollup forbids caching (status.prevent_caching).
// It always re-reads the archive fresh from disk (bypassing the decode
// memo) so a build that updates the same hash_root from multiple
// sessions merges rather than clobbers; an unclean exit after this call
// still leaves every previously-completed session's entry intact.
func (c *Cache) Update(sess *collection.Session) error {
	if sess.Status.PreventCaching {
		return nil
	}
	if sess.HashRoot == "" || sess.Hash == "" {
		return nil
	}

	path := c.archivePath(sess.HashRoot)
	cf, err := readCacheFile(path)
	if err != nil {
		return fmt.Errorf("cache: reading %s before update: %w", sess.HashRoot, err)
	}
	cf.CodebraidVersion = c.Version
	cf.Cache[sess.Hash] = entryFromSession(sess)

	if err := writeCacheFile(path, cf); err != nil {
		return fmt.Errorf("cache: writing %s: %w", sess.HashRoot, err)
	}
	c.memo.invalidate(sess.HashRoot)
	c.noteFile(path)
	for _, f := range richOutputFiles(sess) {
		c.noteFile(f)
	}
	return nil
}

func (c *Cache) noteFile(path string) { c.files[path] = true }

// FinalizeIndex writes the new index: the index archive's own name, the
// hash_root archive of every cached session, and every rich-output file
// noted by Load/Update. Any file the old index listed but this set does
// not is removed.
func (c *Cache) FinalizeIndex(originPaths []string) error {
	newFiles := make([]string, 0, len(c.files)+1)
	newFiles = append(newFiles, c.indexPath())
	for f := range c.files {
		newFiles = append(newFiles, f)
	}

	if c.oldIndex != nil {
		keep := make(map[string]bool, len(newFiles))
		for _, f := range newFiles {
			keep[f] = true
		}
		for _, f := range c.oldIndex.Files {
			if !keep[f] {
				_ = os.Remove(f)
			}
		}
	}

	idx := &indexFile{CodebraidVersion: c.Version, Origins: originPaths, Files: newFiles}
	if err := writeIndexFile(c.indexPath(), idx); err != nil {
		return fmt.Errorf("cache: writing index: %w", err)
	}
	return nil
}

// Cleanup releases the lock and, in no_cache builds, removes whatever
// rich-output files this build created and tries to remove the now-empty
// key and root directories (a non-empty directory is left alone: other
// builds may share the cache root).
func (c *Cache) Cleanup(noCache bool) error {
	defer func() {
		if c.memo != nil {
			c.memo.close()
		}
	}()
	defer releaseLock(c.lock)

	if !noCache {
		return nil
	}
	for f := range c.files {
		_ = os.Remove(f)
	}
	_ = os.Remove(c.dir)
	_ = os.Remove(c.Root)
	return nil
}
