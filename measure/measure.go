package measure

import (
	"fmt"
	"io"
	"math/bits"
	"os"
	"sort"
	"sync"
)

var Enabled bool
var Global Counter

func init() {
	Enabled = os.Getenv("MEASURE_SIZES") == "1"
	Global = Counter{M: make(map[string]int64)}
}

// BytesResidue is ⌈bitlen(q−1)/8⌉, the bytes needed for one entry of Z_q.
func BytesResidue(q int64) int {
	if q < 2 {
		return 0
	}
	return (bits.Len64(uint64(q-1)) + 7) / 8
}

// BytesMatrix is the packed size of a rows×cols matrix over Z_q.
func BytesMatrix(rows, cols int, q int64) int {
	return rows * cols * BytesResidue(q)
}

// BytesBits is the size of an n-bit string.
func BytesBits(n int) int {
	return (n + 7) / 8
}

func Human(n int64) string {
	const (
		KiB = 1024
		MiB = 1024 * KiB
	)
	switch {
	case n >= MiB:
		return fmt.Sprintf("%.1f MiB", float64(n)/float64(MiB))
	case n >= KiB:
		return fmt.Sprintf("%.1f KiB", float64(n)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

type Counter struct {
	mu sync.Mutex
	M  map[string]int64
}

func (c *Counter) Add(key string, n int64) {
	if !Enabled {
		return
	}
	c.mu.Lock()
	c.M[key] += n
	c.mu.Unlock()
}

func (c *Counter) Get(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.M[key]
}

// Dump writes the report sorted by key.
func (c *Counter) Dump(w io.Writer) {
	if !Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.M))
	for k := range c.M {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "[measure] Size report:")
	for _, k := range keys {
		fmt.Fprintf(w, "[measure] %s = %s\n", k, Human(c.M[k]))
	}
}

func Section(name string, f func()) {
	if !Enabled {
		f()
		return
	}
	fmt.Printf("[measure] Begin %s\n", name)
	f()
	fmt.Printf("[measure] End %s\n", name)
}
