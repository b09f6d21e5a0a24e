package cache

import (
	"fmt"

	"github.com/maypok86/otter"
)

// maxMemoWeight bounds the in-memory decode memoization cache: a
// multi-session build with many distinct hash_roots still keeps each
// decoded cache.json's rough byte weight under this ceiling rather than
// holding every archive decoded for the life of the build.
const maxMemoWeight = 50 << 20 // 50MB, mirroring the searcher's file cache limit

// decodeMemo memoizes cacheFile decodes by hash_root for one build: Load
// and Update both read the same archive, and a hash_root frequently holds
// several sessions, so a second session under the same hash_root should
// not re-open and re-decode the zip.
type decodeMemo struct {
	cache otter.Cache[string, *cacheFile]
}

func newDecodeMemo() (*decodeMemo, error) {
	c, err := otter.MustBuilder[string, *cacheFile](maxMemoWeight).
		Cost(func(key string, value *cacheFile) uint32 {
			return uint32(len(value.Cache))*256 + 256
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("cache: building decode memo: %w", err)
	}
	return &decodeMemo{cache: c}, nil
}

func (m *decodeMemo) get(hashRoot string) (*cacheFile, bool) {
	return m.cache.Get(hashRoot)
}

func (m *decodeMemo) set(hashRoot string, cf *cacheFile) {
	m.cache.Set(hashRoot, cf)
}

// invalidate drops a memoized decode, used after Update rewrites the
// archive on disk so a later Load in the same build re-reads instead of
// serving the pre-update snapshot.
func (m *decodeMemo) invalidate(hashRoot string) {
	m.cache.Delete(hashRoot)
}

func (m *decodeMemo) close() {
	m.cache.Close()
}
