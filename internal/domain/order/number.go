package order

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	numberPrefix     = "ORD"
	numberSuffixLen  = 9
	numberMaxRedraws = 8

	// 36^9, the number of distinct suffixes.
	suffixSpace uint64 = 101559956668416
)

// NumberGenerator issues human-readable order numbers of the form
// ORD-<unix millis>-<9 base36 chars>. The random suffix comes from
// crypto/rand, and numbers already issued by this process are remembered in
// a bloom filter so that a repeated draw is replaced before it leaves the
// generator. A false positive only costs an extra draw.
type NumberGenerator struct {
	mu       sync.Mutex
	filter   *bloom.BloomFilter
	capacity uint
	issued   uint
	now      func() time.Time
	rand     io.Reader
}

// NewNumberGenerator returns a generator whose filter remembers roughly
// capacity numbers at the given false positive rate before it is reset.
func NewNumberGenerator(capacity uint, fpRate float64) *NumberGenerator {
	if capacity == 0 {
		capacity = 1 << 20
	}
	return &NumberGenerator{
		filter:   bloom.NewWithEstimates(capacity, fpRate),
		capacity: capacity,
		now:      time.Now,
		rand:     rand.Reader,
	}
}

// Next returns a new order number.
func (g *NumberGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.issued >= g.capacity {
		g.filter.ClearAll()
		g.issued = 0
	}

	for range numberMaxRedraws {
		suffix, err := g.suffix()
		if err != nil {
			return "", errors.Wrap(err, "draw order number suffix")
		}
		n := fmt.Sprintf("%s-%d-%s", numberPrefix, g.now().UnixMilli(), suffix)
		if g.filter.TestAndAddString(n) {
			continue
		}
		g.issued++
		return n, nil
	}
	return "", errors.Errorf("no unique order number after %d draws", numberMaxRedraws)
}

func (g *NumberGenerator) suffix() (string, error) {
	var buf [8]byte
	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return "", err
	}
	v := binary.BigEndian.Uint64(buf[:]) % suffixSpace
	s := strings.ToUpper(strconv.FormatUint(v, 36))
	if pad := numberSuffixLen - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return s, nil
}
