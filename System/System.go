// Package Parameters holds the instantiation-time parameters of a scheme
// instance and their JSON form.
package Parameters

import (
	"encoding/json"
	"math"
	"math/bits"
	"os"
	"path/filepath"

	"github.com/Mega-Ryan/IBME/fault"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// MaxModulus keeps products of two residues inside an int64.
const MaxModulus = int64(1) << 31

// SystemParams holds all public parameters for IB-ME. The fields after
// EnsureOracleCoverage are derived and recomputed by Derive and Load.
type SystemParams struct {
	Users                int    `json:"users"`       // size of the user population (tree leaves)
	MessageLen           int    `json:"message_len"` // plaintext bits
	Modulus              int64  `json:"q"`
	Rows                 int    `json:"rows"` // n
	Seed                 string `json:"seed,omitempty"`
	Hash                 string `json:"hash,omitempty"`
	EnsureOracleCoverage bool   `json:"ensure_oracle_coverage"`

	K            int     `json:"k"`    // ⌈log2 q⌉
	Cols         int     `json:"cols"` // m = n·k
	SignatureLen int     `json:"signature_len"`
	Targets      int     `json:"targets"` // N = MessageLen + SignatureLen
	Sigma        float64 `json:"sigma"`
	Alpha        float64 `json:"alpha"`
	NoiseSigma   float64 `json:"noise_sigma"`
}

// Default returns 4 users, 12-bit messages, q = 3329 and 96 rows.
func Default() SystemParams {
	p, err := Derive(4, 12, 3329, 96)
	if err != nil {
		panic(err)
	}
	return p
}

// Derive fills in the derived fields.
func Derive(users, messageLen int, q int64, rows int) (SystemParams, error) {
	p := SystemParams{
		Users:                users,
		MessageLen:           messageLen,
		Modulus:              q,
		Rows:                 rows,
		EnsureOracleCoverage: true,
	}
	if err := p.derive(); err != nil {
		return SystemParams{}, err
	}
	return p, nil
}

func (p *SystemParams) derive() error {
	if err := p.checkInputs(); err != nil {
		return err
	}
	p.K = bits.Len64(uint64(p.Modulus - 1))
	p.Cols = p.Rows * p.K
	p.SignatureLen = 3 * p.Cols * p.K
	p.Targets = p.MessageLen + p.SignatureLen
	p.Sigma = float64(p.Modulus) / float64(p.Cols)
	p.Alpha = 1 / float64(p.Cols*p.Cols)
	p.NoiseSigma = p.Alpha / math.Sqrt(2*math.Pi)
	return nil
}

func (p SystemParams) checkInputs() error {
	const op = "Parameters.Validate"
	switch {
	case p.Users < 1:
		return fault.Usagef(op, "users = %d, need at least 1", p.Users)
	case p.MessageLen < 1:
		return fault.Usagef(op, "message_len = %d", p.MessageLen)
	case p.Modulus < 2 || p.Modulus >= MaxModulus:
		return fault.Usagef(op, "q = %d outside [2, 2^31)", p.Modulus)
	case p.Rows < 1:
		return fault.Usagef(op, "rows = %d", p.Rows)
	}
	return nil
}

// Validate checks the inputs and that the derived fields agree with them.
func (p SystemParams) Validate() error {
	want := p
	if err := want.derive(); err != nil {
		return err
	}
	if want != p {
		return fault.Usagef("Parameters.Validate", "derived fields are stale: k=%d cols=%d, want k=%d cols=%d",
			p.K, p.Cols, want.K, want.Cols)
	}
	return nil
}

// Load reads parameters from a JSON file and recomputes the derived fields.
func Load(path string) (SystemParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SystemParams{}, errors.Wrapf(err, "read %s", path)
	}
	p := SystemParams{EnsureOracleCoverage: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return SystemParams{}, errors.Wrapf(err, "parse %s", path)
	}
	if err := p.derive(); err != nil {
		return SystemParams{}, err
	}
	return p, nil
}

// Save writes p as indented JSON, creating the parent directory.
func (p SystemParams) Save(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create parameter directory")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal parameters")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	vlog.Infof("parameters written to %s", path)
	return nil
}
