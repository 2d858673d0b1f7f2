package ibme

import (
	"time"

	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/Preimage_Sampler"
	"github.com/Mega-Ryan/IBME/Tree"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/Mega-Ryan/IBME/measure"
	"github.com/Mega-Ryan/IBME/prof"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// SenderKey is the delegated trapdoor of F_sender = [A′ | H(sender)].
type SenderKey struct {
	ID int
	R  matrix.Matrix
}

// NodeKey holds the N short vectors issued for one tree node.
type NodeKey struct {
	Node tree.NodeID
	Keys []matrix.Matrix
}

// ReceiverKey covers the path from the receiver's leaf to the root.
type ReceiverKey struct {
	ID    int
	Nodes []NodeKey
}

// UpdateKey covers the KUNodes set of one epoch.
type UpdateKey struct {
	Epoch int
	Nodes []NodeKey
}

// KeyPair combines a receiver and an update vector for one target.
type KeyPair struct {
	First, Second matrix.Matrix
}

// DecryptionKey is valid for one receiver at one epoch.
type DecryptionKey struct {
	ID    int
	Epoch int
	Node  tree.NodeID
	Pairs []KeyPair
}

func (s *Scheme) bytesOf(keys []NodeKey) int64 {
	var total int64
	for _, nk := range keys {
		for _, k := range nk.Keys {
			total += int64(measure.BytesMatrix(k.Rows(), k.Cols(), s.zq.Q()))
		}
	}
	return total
}

// SKGen delegates the A′ trapdoor to [A′ | H(sender)].
func (s *Scheme) SKGen(sender int) (SenderKey, error) {
	const op = "ibme.SKGen"
	defer prof.Track(time.Now(), "SKGen")
	if err := s.checkIdentity(op, sender); err != nil {
		return SenderKey{}, err
	}
	h, err := s.senderHash(sender)
	if err != nil {
		return SenderKey{}, err
	}
	td, err := s.sampler.DelegateTrapdoor(s.aPrime.A, s.aPrime.R, h, s.params.Sigma)
	if err != nil {
		return SenderKey{}, errors.Wrapf(err, "%s: sender %d", op, sender)
	}
	target, err := s.zq.Gadget(s.params.Rows).Sub(h)
	if err != nil {
		return SenderKey{}, err
	}
	if err := Preimage_Sampler.Verify(op, s.aPrime.A, td.R, target); err != nil {
		return SenderKey{}, err
	}
	measure.Global.Add("sender key", int64(measure.BytesMatrix(td.R.Rows(), td.R.Cols(), s.zq.Q())))
	return SenderKey{ID: sender, R: td.R}, nil
}

// nodeKeys samples, for every node, N vectors e with [A | M]·e equal to the
// node's share on the given side, populating shares on first use.
func (s *Scheme) nodeKeys(op string, nodes []tree.NodeID, side tree.Side, mBlock matrix.Matrix) ([]NodeKey, error) {
	f, err := matrix.HConcat(s.a.A, mBlock)
	if err != nil {
		return nil, err
	}
	draw := func() matrix.Matrix { return s.zq.Uniform(s.params.Rows, 1) }
	out := make([]NodeKey, 0, len(nodes))
	for _, v := range nodes {
		u1, u2, err := s.tree.EnsureShares(v, side, s.u, draw)
		if err != nil {
			return nil, err
		}
		shares := u1
		if side == tree.Update {
			shares = u2
		}
		nk := NodeKey{Node: v, Keys: make([]matrix.Matrix, len(shares))}
		for i, target := range shares {
			e, err := s.sampler.SampleLeft(s.a.A, mBlock, s.a.R, target)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: node %d target %d", op, v, i)
			}
			if err := Preimage_Sampler.Verify(op, f, e, target); err != nil {
				return nil, err
			}
			nk.Keys[i] = e
		}
		out = append(out, nk)
		vlog.VI(2).Infof("%s: node %d done", op, v)
	}
	return out, nil
}

// RKGen issues keys for every node on the receiver's leaf-to-root path.
func (s *Scheme) RKGen(receiver int) (ReceiverKey, error) {
	const op = "ibme.RKGen"
	defer prof.Track(time.Now(), "RKGen")
	if err := s.checkIdentity(op, receiver); err != nil {
		return ReceiverKey{}, err
	}
	leaf, err := s.tree.Leaf(receiver)
	if err != nil {
		return ReceiverKey{}, err
	}
	path, err := s.tree.Path(leaf)
	if err != nil {
		return ReceiverKey{}, err
	}
	mr, err := s.receiverMatrix(receiver)
	if err != nil {
		return ReceiverKey{}, err
	}
	nodes, err := s.nodeKeys(op, path, tree.Receiver, mr)
	if err != nil {
		return ReceiverKey{}, err
	}
	measure.Global.Add("receiver key", s.bytesOf(nodes))
	return ReceiverKey{ID: receiver, Nodes: nodes}, nil
}

// KUpdGen issues update keys for epoch t over the cover of users not revoked
// in rl by t. A nil rl means nobody is revoked.
func (s *Scheme) KUpdGen(rl *tree.RevocationList, t int) (UpdateKey, error) {
	const op = "ibme.KUpdGen"
	defer prof.Track(time.Now(), "KUpdGen")
	if err := s.checkEpoch(op, t); err != nil {
		return UpdateKey{}, err
	}
	cover := s.tree.KUNodes(rl, t)
	mt, err := s.epochMatrix(t)
	if err != nil {
		return UpdateKey{}, err
	}
	nodes, err := s.nodeKeys(op, cover, tree.Update, mt)
	if err != nil {
		return UpdateKey{}, err
	}
	vlog.VI(1).Infof("KUpdGen: epoch %d covers %d nodes", t, len(cover))
	measure.Global.Add("update key", s.bytesOf(nodes))
	return UpdateKey{Epoch: t, Nodes: nodes}, nil
}

// DKGen pairs the receiver and update vectors of the node the receiver's
// path shares with the epoch's cover. A revoked receiver shares none and
// gets ErrRevoked. rk and uk must have been issued for receiver and t.
func (s *Scheme) DKGen(rk ReceiverKey, receiver int, uk UpdateKey, t int) (DecryptionKey, error) {
	const op = "ibme.DKGen"
	defer prof.Track(time.Now(), "DKGen")
	if err := s.checkIdentity(op, receiver); err != nil {
		return DecryptionKey{}, err
	}
	if err := s.checkEpoch(op, t); err != nil {
		return DecryptionKey{}, err
	}
	if rk.ID != receiver {
		return DecryptionKey{}, fault.Wrapf(op, fault.Usage, ErrKeyMismatch, "receiver key of %d used for %d", rk.ID, receiver)
	}
	if uk.Epoch != t {
		return DecryptionKey{}, fault.Wrapf(op, fault.Usage, ErrKeyMismatch, "update key of epoch %d used for %d", uk.Epoch, t)
	}
	var rn, un *NodeKey
	for i := range rk.Nodes {
		for j := range uk.Nodes {
			if rk.Nodes[i].Node == uk.Nodes[j].Node {
				rn, un = &rk.Nodes[i], &uk.Nodes[j]
				break
			}
		}
		if rn != nil {
			break
		}
	}
	if rn == nil {
		return DecryptionKey{}, fault.Wrapf(op, fault.Denied, ErrRevoked, "receiver %d at epoch %d", receiver, t)
	}
	n := s.params.Targets
	if len(rn.Keys) != n || len(un.Keys) != n {
		return DecryptionKey{}, fault.Invariantf(op, "node %d carries %d receiver and %d update vectors, want %d",
			rn.Node, len(rn.Keys), len(un.Keys), n)
	}
	mr, err := s.receiverMatrix(receiver)
	if err != nil {
		return DecryptionKey{}, err
	}
	fr, err := matrix.HConcat(s.a.A, mr)
	if err != nil {
		return DecryptionKey{}, err
	}
	mt, err := s.epochMatrix(t)
	if err != nil {
		return DecryptionKey{}, err
	}
	ft, err := matrix.HConcat(s.a.A, mt)
	if err != nil {
		return DecryptionKey{}, err
	}
	dk := DecryptionKey{ID: receiver, Epoch: t, Node: rn.Node, Pairs: make([]KeyPair, n)}
	for i := 0; i < n; i++ {
		first, err := fr.Mul(rn.Keys[i])
		if err != nil {
			return DecryptionKey{}, err
		}
		second, err := ft.Mul(un.Keys[i])
		if err != nil {
			return DecryptionKey{}, err
		}
		sum, err := first.Add(second)
		if err != nil {
			return DecryptionKey{}, err
		}
		if !sum.Equal(s.u[i]) {
			vlog.Errorf("%s: key pair %d does not reconstruct u[%d]", op, i, i)
			return DecryptionKey{}, fault.Invariantf(op, "F_id·dk.first + F_t·dk.second != u[%d]", i)
		}
		dk.Pairs[i] = KeyPair{First: rn.Keys[i], Second: un.Keys[i]}
	}
	return dk, nil
}

// Revoke records that user is revoked from epoch t on.
func (s *Scheme) Revoke(user, t int) error {
	const op = "ibme.Revoke"
	if err := s.checkIdentity(op, user); err != nil {
		return err
	}
	if err := s.checkEpoch(op, t); err != nil {
		return err
	}
	leaf, err := s.tree.Leaf(user)
	if err != nil {
		return err
	}
	if s.rl.Add(tree.Entry{Node: leaf, Epoch: t}) {
		vlog.Infof("revoked user %d from epoch %d", user, t)
	}
	return nil
}
