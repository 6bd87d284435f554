package rdpos

import (
	"encoding/binary"
	"math/big"

	"github.com/rdchain/node/foundation/blockchain/signature"
)

// keccakStream is a deterministic byte stream keyed solely by seed: block i
// is keccak256(seed ‖ i), i big-endian uint64. Fisher-Yates below consumes
// it as its PRNG, giving every node that computes schedule[h] from the
// same seed[h] an identical result without any shared mutable RNG state.
type keccakStream struct {
	seed    signature.Hash
	counter uint64
}

func newKeccakStream(seed signature.Hash) *keccakStream {
	return &keccakStream{seed: seed}
}

func (k *keccakStream) next() signature.Hash {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], k.counter)
	k.counter++
	return signature.Keccak256(k.seed.Bytes(), ctr[:])
}

// uintn returns a uniform random value in [0, n) derived from the stream.
// n must be > 0.
func (k *keccakStream) uintn(n uint64) uint64 {
	h := k.next()
	v := new(big.Int).Mod(h.Big(), big.NewInt(0).SetUint64(n))
	return v.Uint64()
}

// DeriveSchedule computes schedule[h] = shuffle(validators, seed) via a
// Fisher-Yates shuffle driven entirely by keccakStream, per spec.md §4.I.
// schedule[0] is the elected producer; schedule[1:] are, in order, the
// eligible co-signers — index k-1 is the last guaranteed co-signer slot,
// and indices beyond it are the cosigner-replacement reserve.
func DeriveSchedule(validators []signature.Address, seed signature.Hash) []signature.Address {
	schedule := make([]signature.Address, len(validators))
	copy(schedule, validators)

	stream := newKeccakStream(seed)
	for i := len(schedule) - 1; i > 0; i-- {
		j := stream.uintn(uint64(i) + 1)
		schedule[i], schedule[j] = schedule[j], schedule[i]
	}

	return schedule
}

// fallbackSeed computes the re-shuffle seed a producer timeout falls back
// to: seed ‖ "skip", per spec.md §4.I's failure-handling clause. Repeated
// timeouts keep appending another "skip" pass deterministically, since
// each call rehashes its input.
func fallbackSeed(seed signature.Hash) signature.Hash {
	return signature.Keccak256(seed.Bytes(), []byte("skip"))
}

// fallbackSeedAt applies fallbackSeed to seed level times: level 0 is
// the seed unmodified, level 1 is keccak(seed ‖ "skip"), level 2 re-skips
// that result, and so on. This is the producer-timeout fallback chain
// spec.md §4.I describes — every validator can walk it on its own, since
// each link is a pure function of the last.
func fallbackSeedAt(seed signature.Hash, level int) signature.Hash {
	for i := 0; i < level; i++ {
		seed = fallbackSeed(seed)
	}
	return seed
}

// scheduleIndex returns the position of addr within schedule, or -1 if
// addr is not scheduled at all this height.
func scheduleIndex(schedule []signature.Address, addr signature.Address) int {
	for i, a := range schedule {
		if a == addr {
			return i
		}
	}
	return -1
}
