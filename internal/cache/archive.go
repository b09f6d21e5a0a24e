package cache

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const cacheJSONName = "cache.json"
const indexJSONName = "index.json"

// cacheFile is the decoded form of one `<hash_root>.zip` archive: every
// session whose hash happens to share that hash_root lives in the same
// archive, keyed by its full hash.
type cacheFile struct {
	CodebraidVersion string                  `json:"codebraid_version"`
	Cache            map[string]sessionCache `json:"cache"`
}

// indexFile is the decoded form of `<cache_key>_index.zip`'s index.json:
// the set of origin documents this cache was built from and every file
// the cache directory currently owns.
type indexFile struct {
	CodebraidVersion string   `json:"codebraid_version"`
	Origins          []string `json:"origins"`
	Files            []string `json:"files"`
}

func hashRootArchiveName(hashRoot string) string { return hashRoot + ".zip" }

func indexArchiveName(cacheKey string) string { return cacheKey + "_index.zip" }

// readCacheFile decodes the named archive's single cache.json entry. A
// missing archive is not an error: it simply means no session has ever
// been cached under that hash_root yet.
func readCacheFile(path string) (*cacheFile, error) {
	data, err := readZipEntry(path, cacheJSONName)
	if err != nil {
		if os.IsNotExist(err) {
			return &cacheFile{Cache: map[string]sessionCache{}}, nil
		}
		return nil, err
	}
	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if cf.Cache == nil {
		cf.Cache = map[string]sessionCache{}
	}
	return &cf, nil
}

// writeCacheFile compresses cf into path's cache.json entry, replacing
// whatever archive existed there.
func writeCacheFile(path string, cf *cacheFile) error {
	data, err := json.Marshal(cf)
	if err != nil {
		return err
	}
	return writeZipEntry(path, cacheJSONName, data)
}

func readIndexFile(path string) (*indexFile, error) {
	data, err := readZipEntry(path, indexJSONName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &idx, nil
}

func writeIndexFile(path string, idx *indexFile) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeZipEntry(path, indexJSONName, data)
}

// readZipEntry opens the zip archive at path and returns the contents of
// its single named entry. Returns an *os.PathError satisfying os.IsNotExist
// when the archive itself does not exist.
func readZipEntry(path, entryName string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != entryName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", entryName, path, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s: missing %s entry", path, entryName)
}

// writeZipEntry writes a single compressed entry to a fresh archive at
// path, replacing any archive already there. Writes to a temp file first
// and renames into place so a crash mid-write never leaves a truncated
// archive behind.
func writeZipEntry(path, entryName string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	w, err := zw.Create(entryName)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
