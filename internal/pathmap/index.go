package pathmap

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"sync"

	"github.com/nao1215/sitemirror/internal/model"
)

// Index assigns local paths for one run so that two distinct URLs never
// share a file. The first URL to claim a path keeps it; later URLs mapping
// to the same path get a hash-qualified name (app.js becomes app-1a2b3c4d.js).
//
// Index is safe for concurrent use.
type Index struct {
	mapper Mapper

	mu     sync.Mutex
	byURL  map[string]string
	byPath map[string]string
}

// NewIndex creates an empty Index over mapper.
func NewIndex(mapper Mapper) *Index {
	return &Index{
		mapper: mapper,
		byURL:  make(map[string]string),
		byPath: make(map[string]string),
	}
}

// Assign returns the local path for u. Calling it again for the same URL
// returns the same path.
func (x *Index) Assign(u string, c model.Category) string {
	x.mu.Lock()
	defer x.mu.Unlock()

	if p, ok := x.byURL[u]; ok {
		return p
	}

	p := x.mapper.LocalPath(u, c)
	for n := 8; ; n += 8 {
		owner, taken := x.byPath[p]
		if !taken || owner == u {
			break
		}
		p = qualify(x.mapper.LocalPath(u, c), u, n)
		if n >= sha256.Size*2 {
			break
		}
	}

	x.byURL[u] = p
	x.byPath[p] = u
	return p
}

// Lookup returns the path previously assigned to u.
func (x *Index) Lookup(u string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.byURL[u]
	return p, ok
}

// Len returns the number of assigned paths.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byURL)
}

// qualify inserts the first n hex digits of the URL's SHA-256 before the extension.
func qualify(p, u string, n int) string {
	sum := sha256.Sum256([]byte(u))
	digest := hex.EncodeToString(sum[:])
	if n > len(digest) {
		n = len(digest)
	}

	dir, file := path.Split(p)
	ext := path.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	return dir + stem + "-" + digest[:n] + ext
}
