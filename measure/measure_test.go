package measure

import (
	"bytes"
	"strings"
	"testing"
)

func TestBytesResidue(t *testing.T) {
	if got := BytesResidue(97); got != 1 {
		t.Fatalf("BytesResidue(97)=%d want 1", got)
	}
	if got := BytesResidue(257); got != 2 {
		t.Fatalf("BytesResidue(257)=%d want 2", got)
	}
	if got := BytesResidue(3329); got != 2 {
		t.Fatalf("BytesResidue(3329)=%d want 2", got)
	}
}

func TestBytesMatrixAndBits(t *testing.T) {
	if got := BytesMatrix(2, 14, 97); got != 28 {
		t.Fatalf("BytesMatrix(2,14,97)=%d want 28", got)
	}
	if got := BytesBits(9); got != 2 {
		t.Fatalf("BytesBits(9)=%d want 2", got)
	}
}

func TestHuman(t *testing.T) {
	if got := Human(512); got != "512 B" {
		t.Fatalf("Human(512)=%q", got)
	}
	if got := Human(3 * 1024 * 1024 / 2); got != "1.5 MiB" {
		t.Fatalf("Human(1.5MiB)=%q", got)
	}
}

func TestCounterDump(t *testing.T) {
	old := Enabled
	Enabled = true
	defer func() { Enabled = old }()
	c := Counter{M: make(map[string]int64)}
	c.Add("b", 2048)
	c.Add("a", 10)
	c.Add("a", 10)
	if c.Get("a") != 20 {
		t.Fatalf("a = %d", c.Get("a"))
	}
	var buf bytes.Buffer
	c.Dump(&buf)
	out := buf.String()
	ia, ib := strings.Index(out, "a = 20 B"), strings.Index(out, "b = 2.0 KiB")
	if ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("report not sorted:\n%s", out)
	}
}
