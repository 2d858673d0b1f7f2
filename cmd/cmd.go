//go:build !analysis
// +build !analysis

package main

import (
	"fmt"
	"os"

	"github.com/Mega-Ryan/IBME/IBME"
	"github.com/Mega-Ryan/IBME/System"
	"github.com/Mega-Ryan/IBME/measure"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"v.io/x/lib/vlog"
)

const (
	senderID   = 2
	receiverID = 3
	epoch0     = 0
	epoch1     = 1
)

type options struct {
	paramsPath string
	savePath   string
	users      int
	messageLen int
	modulus    int64
	rows       int
	seed       string
	hashName   string
	scenario   string
	message    string
	verbosity  int
	coverage   bool
}

func parseFlags() options {
	var o options
	d := Parameters.Default()
	flag.StringVar(&o.paramsPath, "params", "", "load parameters from this JSON file")
	flag.StringVar(&o.savePath, "save-params", "", "write the parameters used to this JSON file")
	flag.IntVar(&o.users, "users", d.Users, "size of the user population")
	flag.IntVar(&o.messageLen, "message-len", d.MessageLen, "plaintext length in bits")
	flag.Int64Var(&o.modulus, "q", d.Modulus, "modulus")
	flag.IntVar(&o.rows, "rows", d.Rows, "lattice dimension n")
	flag.StringVar(&o.seed, "seed", "", "seed for a reproducible run")
	flag.StringVar(&o.hashName, "hash", "sha256", "hash-to-matrix function: sha256, xmd or shake256")
	flag.StringVar(&o.scenario, "scenario", "normal", "normal, mismatch or revoked")
	flag.StringVar(&o.message, "message", "10100111", "plaintext bits")
	flag.BoolVar(&o.coverage, "coverage", true, "fill oracle gaps with binary digits")
	flag.IntVarP(&o.verbosity, "verbose", "v", 0, "log verbosity")
	flag.Parse()
	return o
}

func loadParams(o options) (Parameters.SystemParams, error) {
	if o.paramsPath != "" {
		return Parameters.Load(o.paramsPath)
	}
	p, err := Parameters.Derive(o.users, o.messageLen, o.modulus, o.rows)
	if err != nil {
		return Parameters.SystemParams{}, err
	}
	p.Seed = o.seed
	p.Hash = o.hashName
	p.EnsureOracleCoverage = o.coverage
	return p, nil
}

func run(o options) error {
	params, err := loadParams(o)
	if err != nil {
		return err
	}
	if o.savePath != "" {
		if err := params.Save(o.savePath); err != nil {
			return err
		}
	}
	if o.scenario == "mismatch" && params.Users <= receiverID+1 {
		return errors.Errorf("mismatch scenario needs more than %d users", receiverID+1)
	}
	if params.Users <= receiverID {
		return errors.Errorf("demo needs more than %d users", receiverID)
	}

	fmt.Println("🔧 Setting up IB-ME...")
	var s *ibme.Scheme
	measure.Section("Setup", func() { s, err = ibme.Setup(params) })
	if err != nil {
		return err
	}
	msg, err := s.ParseMessage(o.message)
	if err != nil {
		return err
	}

	fmt.Println("✍️  Generating sender and receiver keys...")
	senderKeys := make([]ibme.SenderKey, params.Users)
	receiverKeys := make([]ibme.ReceiverKey, params.Users)
	for i := 0; i < params.Users; i++ {
		if senderKeys[i], err = s.SKGen(i); err != nil {
			return err
		}
		if receiverKeys[i], err = s.RKGen(i); err != nil {
			return err
		}
	}

	decryptAs, epoch := receiverID, epoch0
	switch o.scenario {
	case "normal":
	case "mismatch":
		decryptAs = receiverID + 1
	case "revoked":
		epoch = epoch1
		if err := s.Revoke(receiverID, epoch1); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown scenario %q", o.scenario)
	}

	fmt.Printf("🔑 Key update for epoch %d...\n", epoch)
	uk, err := s.KUpdGen(s.RL(), epoch)
	if err != nil {
		return err
	}
	dk, err := s.DKGen(receiverKeys[decryptAs], decryptAs, uk, epoch)
	if err != nil {
		return errors.Wrapf(err, "decryption key for %d", decryptAs)
	}

	fmt.Printf("🔒 Encrypting %s from %d to %d...\n", msg, senderID, receiverID)
	var ct ibme.Ciphertext
	measure.Section("Enc", func() { ct, err = s.Enc(senderKeys[senderID], senderID, receiverID, msg, epoch) })
	if err != nil {
		return err
	}
	got, err := s.Dec(dk, decryptAs, senderID, ct)
	if err != nil {
		return errors.Wrapf(err, "decrypting as %d", decryptAs)
	}
	fmt.Printf("🔓 Decrypted: %s\n", got)
	if !got.Equal(msg) {
		return errors.New("decrypted message differs from the plaintext")
	}
	return nil
}

func configureLogging(verbosity int) error {
	return vlog.Configure(vlog.LogToStderr(true), vlog.Level(verbosity))
}

func main() {
	o := parseFlags()
	if err := configureLogging(o.verbosity); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer vlog.FlushLog()
	err := run(o)
	measure.Global.Dump(os.Stdout)
	if err != nil {
		// mismatch and revoked are expected to end here
		fmt.Printf("❌ %v\n", err)
		vlog.FlushLog()
		os.Exit(1)
	}
	fmt.Println("✅ All done.")
}
