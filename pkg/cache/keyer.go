package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"strings"
)

// Keyer builds cache keys.
type Keyer interface {
	// EvolveKey identifies one evolve request: the submitted image, the
	// prompt and the model that answers it.
	EvolveKey(image []byte, prompt, model string) string
}

// DefaultKeyer hashes every component into "evolve:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// EvolveKey implements Keyer. The prompt is trimmed so trailing whitespace
// does not defeat the cache.
func (DefaultKeyer) EvolveKey(image []byte, prompt, model string) string {
	return "evolve:" + digest(Hash(image), strings.TrimSpace(prompt), model)
}

// ScopedKeyer prefixes another keyer's keys, so backends serving different
// upstreams can share one store.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner uses
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// EvolveKey implements Keyer.
func (k *ScopedKeyer) EvolveKey(image []byte, prompt, model string) string {
	return k.prefix + k.inner.EvolveKey(image, prompt, model)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// digest hashes parts with length prefixes, so ("ab", "c") and ("a", "bc")
// never collide.
func digest(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		io.WriteString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
