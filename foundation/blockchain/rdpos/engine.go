package rdpos

import (
	"crypto/ecdsa"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/mempool"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/storage"
)

// Config bundles the collaborators an Engine is built from.
type Config struct {
	Store           *storage.Store
	ValidatorPool   *mempool.ValidatorPool
	GenesisSeed     signature.Hash
	GenesisSet      []signature.Address
	MinValidators   int
	ChainID         uint64
	Self            *ecdsa.PrivateKey // nil for a non-validating query node
	P2P             Collaborator      // nil is valid; only the consensus loop needs it
}

// Engine is rdPoS's consensus engine: the validator set, the per-height
// seed history needed to derive schedule[h] for any h already reached,
// and the block-level operations state.ConsensusEngine requires. It holds
// no reference to state.State — every method takes exactly the
// information it needs as arguments, keeping the import edge one-way
// (state → rdpos, via the interface; never rdpos → state).
type Engine struct {
	mu sync.RWMutex

	store         *storage.Store
	set           *ValidatorSet
	validatorPool *mempool.ValidatorPool
	minValidators int
	chainID       uint64
	self          *ecdsa.PrivateKey
	p2p           Collaborator

	// seeds[h] is the randomness seed schedule[h] was derived from, where
	// h is a block height (the chain's first block is height 1, there is
	// no height 0 block — see chain.Chain). seeds[1] is the genesis seed.
	seeds map[uint64]signature.Hash

	// fallbackLevels[h] is how many producer-timeout reshuffles height h
	// has advanced through, as Loop.tick's wall-clock detection raises
	// it. Level 0 is the normal schedule; level n derives schedule[h]
	// from seed[h] pushed through fallbackSeed n times. Cleared once
	// height h is applied and seed[h+1] is recorded.
	fallbackLevels map[uint64]int

	shut chan struct{}
	wg   sync.WaitGroup
}

// maxFallbackLevel bounds the fallback chain committeeForBlock will walk
// and Loop.tick will escalate to, so a height that never completes can't
// grow either's bookkeeping without limit.
const maxFallbackLevel = 8

// NewEngine constructs an Engine. cfg.GenesisSet seeds the validator set
// the first time a chain boots against an empty store; cfg.GenesisSeed is
// seed[1], the seed schedule[1] (the very first block) is derived from.
func NewEngine(cfg Config) (*Engine, error) {
	set, err := NewValidatorSet(cfg.Store, cfg.GenesisSet)
	if err != nil {
		return nil, err
	}

	if set.Len() < cfg.MinValidators {
		return nil, fmt.Errorf("validator set has %d members, need at least %d", set.Len(), cfg.MinValidators)
	}

	e := &Engine{
		store:          cfg.Store,
		set:            set,
		validatorPool:  cfg.ValidatorPool,
		minValidators:  cfg.MinValidators,
		chainID:        cfg.ChainID,
		self:           cfg.Self,
		p2p:            cfg.P2P,
		seeds:          map[uint64]signature.Hash{1: cfg.GenesisSeed},
		fallbackLevels: make(map[uint64]int),
		shut:           make(chan struct{}),
	}

	return e, nil
}

// ValidatorSet exposes the engine's validator set for RPC queries and the
// validator-management CLI.
func (e *Engine) ValidatorSet() *ValidatorSet {
	return e.set
}

// seedAt returns the recorded seed schedule[h] is derived from; ok is false
// if recordSeed has not stored one for height yet.
func (e *Engine) seedAt(height uint64) (signature.Hash, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seed, ok := e.seeds[height]
	return seed, ok
}

func (e *Engine) recordSeed(height uint64, seed signature.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seeds[height] = seed
}

// fallbackLevelFor reports how many producer-timeout reshuffles height h
// has advanced through so far, as Loop.tick has raised it.
func (e *Engine) fallbackLevelFor(height uint64) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.fallbackLevels[height]
}

// advanceFallback raises height's fallback level to at least level,
// capped at maxFallbackLevel, and reports the level now in effect. A
// level lower than the one already recorded is a no-op: fallback only
// ever moves forward within a height.
func (e *Engine) advanceFallback(height uint64, level int) int {
	if level > maxFallbackLevel {
		level = maxFallbackLevel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if level > e.fallbackLevels[height] {
		e.fallbackLevels[height] = level
	}
	return e.fallbackLevels[height]
}

// clearFallback drops height's fallback bookkeeping once it has been
// applied and its successor's seed recorded.
func (e *Engine) clearFallback(height uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.fallbackLevels, height)
}

// scheduleFor returns schedule[h] at h's current fallback level, deriving
// it from the recorded seed[h] pushed through fallbackSeed that many
// times. A height whose seed hasn't been recorded yet (this node hasn't
// observed block h-1 applying yet) is reported via ok=false.
func (e *Engine) scheduleFor(height uint64) ([]signature.Address, bool) {
	seed, ok := e.seedAt(height)
	if !ok {
		return nil, false
	}
	level := e.fallbackLevelFor(height)
	return DeriveSchedule(e.set.List(), fallbackSeedAt(seed, level)), true
}

// committeeFor returns the first minValidators entries of schedule[h]:
// index 0 is the producer, 1..k-1 the co-signers.
func (e *Engine) committeeFor(height uint64) ([]signature.Address, bool) {
	schedule, ok := e.scheduleFor(height)
	if !ok {
		return nil, false
	}
	k := e.minValidators
	if k > len(schedule) {
		k = len(schedule)
	}
	return schedule[:k], true
}

// signRandomHash builds and signs this engine's own randomHash commitment
// for height, used by the consensus loop's commit phase. Returns an error
// if this engine holds no signing key (a non-validating query node).
// database.ValidatorTx has no dedicated height field, so height doubles
// as the tx's Nonce: one commit and one reveal per height is exactly the
// uniqueness ValidatorPool's hash-keyed dedup needs.
func (e *Engine) signRandomHash(height uint64, committed signature.Hash) (database.SignedValidatorTx, error) {
	if e.self == nil {
		return database.SignedValidatorTx{}, fmt.Errorf("rdpos: no signing key configured")
	}
	return database.NewRandomHashTx(height, e.chainID, committed).Sign(e.self)
}

// signRandomSeed builds and signs this engine's own randomSeed reveal for
// height, used by the consensus loop's reveal phase.
func (e *Engine) signRandomSeed(height uint64, seed signature.Hash) (database.SignedValidatorTx, error) {
	if e.self == nil {
		return database.SignedValidatorTx{}, fmt.Errorf("rdpos: no signing key configured")
	}
	return database.NewRandomSeedTx(height, e.chainID, seed).Sign(e.self)
}

// =============================================================================
// state.ConsensusEngine

// BuildBlock assembles validatorTxs for height h from the validator
// mempool in the schedule-driven order spec.md §4.D requires — every
// committee member's randomHash commitment, in schedule order, then every
// committee member's randomSeed reveal, in schedule order — builds the
// block, and signs the header as producer. Co-signature collection is the
// consensus loop's job (it needs the P2P collaborator and quorum
// timeouts); BuildBlock returns a producer-signed, not-yet-co-signed
// block, matching the "signs the header hash, then collects
// co-signatures" split in spec.md §4.D.
func (e *Engine) BuildBlock(height uint64, prevHash signature.Hash, timestamp time.Time, txs []database.SignedTx) (database.Block, error) {
	committee, ok := e.committeeFor(height)
	if !ok {
		return database.Block{}, chainerrs.NewConsensusError(chainerrs.ScheduleMismatch, fmt.Sprintf("no recorded seed for height %d yet", height))
	}

	validatorTxs := e.assembleValidatorTxs(committee)

	block, err := database.NewBlock(prevHash, height, timestamp, txs, validatorTxs)
	if err != nil {
		return database.Block{}, err
	}

	if e.self == nil {
		return block, nil
	}

	sig, err := block.SignHeader(e.self)
	if err != nil {
		return database.Block{}, err
	}
	block.ProducerSig = sig

	return block, nil
}

// assembleValidatorTxs pulls committee's pooled randomHash commitments (in
// committee order), then its pooled randomSeed reveals (in committee
// order) — hashes before any seed, per spec.md §4.D.
func (e *Engine) assembleValidatorTxs(committee []signature.Address) []database.SignedValidatorTx {
	var out []database.SignedValidatorTx

	for _, validator := range committee {
		if tx, ok := e.validatorPool.FindByKindAndSender(database.KindRandomHash, validator); ok {
			out = append(out, tx)
		}
	}
	for _, validator := range committee {
		if tx, ok := e.validatorPool.FindByKindAndSender(database.KindRandomSeed, validator); ok {
			out = append(out, tx)
		}
	}

	return out
}

// ValidateBlock checks every rdPoS-level invariant spec.md §4.I names:
// the committed-hash/revealed-seed sets are both exactly minValidators in
// size (missing reveals are allowed through as disqualified-but-present,
// so this counts commits, not valid reveals), every revealed seed matches
// its own commitment, the producer and co-signer signatures recover to
// schedule[h] in order (at whichever producer-timeout fallback level
// schedule[h] was actually produced under), all k signers are distinct,
// and every randomHash/randomSeed signer is a member of the validator set.
func (e *Engine) ValidateBlock(block database.Block) error {
	height := block.Header.Height

	seed, ok := e.seedAt(height)
	if !ok {
		return chainerrs.NewConsensusError(chainerrs.ScheduleMismatch, fmt.Sprintf("no recorded seed for height %d", height))
	}

	committee, err := e.committeeForBlock(seed, block)
	if err != nil {
		return err
	}

	commits, reveals := extractCommitsAndReveals(block.ValidatorTxs)
	for _, validator := range committee {
		if _, ok := commits[validator]; !ok {
			return chainerrs.NewConsensusError(chainerrs.CommitRevealMismatch, fmt.Sprintf("missing randomHash commitment from %s", validator.Hex()))
		}
	}
	if len(commits) != len(committee) {
		return chainerrs.NewConsensusError(chainerrs.CommitRevealMismatch, fmt.Sprintf("got %d randomHash commitments, exp %d", len(commits), len(committee)))
	}

	for validator, reveal := range reveals {
		committed, ok := commits[validator]
		if !ok {
			continue
		}
		if signature.Keccak256(reveal.Bytes()) != committed {
			return chainerrs.NewConsensusError(chainerrs.CommitRevealMismatch, fmt.Sprintf("revealed seed from %s does not match its commitment", validator.Hex()))
		}
	}

	for _, vtx := range block.ValidatorTxs {
		if vtx.Kind != database.KindRandomHash && vtx.Kind != database.KindRandomSeed {
			continue
		}
		from, err := vtx.FromAddress()
		if err != nil {
			return err
		}
		if !e.set.Contains(from) {
			return chainerrs.NewConsensusError(chainerrs.ValidatorNotInSet, fmt.Sprintf("%s submitted a validator tx but is not in the validator set", from.Hex()))
		}
	}

	return nil
}

// committeeForBlock resolves the committee block's producer and
// co-signer signatures actually recover to: the normal schedule first,
// then each producer-timeout fallback reshuffle in turn, per spec.md
// §4.I. A validating node need not have noticed the timeout itself —
// walking the chain from level 0 means a block produced under a fallback
// schedule this node hasn't locally reached yet still validates. Returns
// the level-0 diagnosis when no level matches, so a block that was never
// produced under any schedule still reports an ordinary WrongProducer
// error rather than an opaque "no fallback level matched".
func (e *Engine) committeeForBlock(seed signature.Hash, block database.Block) ([]signature.Address, error) {
	validators := e.set.List()
	k := e.minValidators
	if k > len(validators) {
		k = len(validators)
	}

	var firstErr error
	for level := 0; level <= maxFallbackLevel; level++ {
		schedule := DeriveSchedule(validators, fallbackSeedAt(seed, level))
		committee := schedule[:k]

		if err := e.validateSigners(block, committee); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return committee, nil
	}
	return nil, firstErr
}

// validateSigners checks producerSig recovers to committee[0] and each
// validatorSigs[j] recovers to committee[j+1], and that together with the
// producer the k signers are pairwise distinct.
func (e *Engine) validateSigners(block database.Block, committee []signature.Address) error {
	if len(committee) == 0 {
		return chainerrs.NewConsensusError(chainerrs.ScheduleMismatch, "empty committee")
	}

	producer, err := block.RecoverHeaderSigner(block.ProducerSig)
	if err != nil {
		return chainerrs.NewConsensusError(chainerrs.WrongProducer, err.Error())
	}
	if producer != committee[0] {
		return chainerrs.NewConsensusError(chainerrs.WrongProducer, fmt.Sprintf("block signed by %s, schedule elected %s", producer.Hex(), committee[0].Hex()))
	}

	seen := map[signature.Address]bool{producer: true}

	expectedCoSigners := len(committee) - 1
	if len(block.ValidatorSigs) < expectedCoSigners {
		return chainerrs.NewConsensusError(chainerrs.MissingCoSignature, fmt.Sprintf("got %d co-signatures, need %d", len(block.ValidatorSigs), expectedCoSigners))
	}

	for j := 0; j < expectedCoSigners; j++ {
		signer, err := block.RecoverHeaderSigner(block.ValidatorSigs[j])
		if err != nil {
			return chainerrs.NewConsensusError(chainerrs.MissingCoSignature, err.Error())
		}
		if signer != committee[j+1] {
			return chainerrs.NewConsensusError(chainerrs.MissingCoSignature, fmt.Sprintf("co-signature %d is from %s, schedule expected %s", j, signer.Hex(), committee[j+1].Hex()))
		}
		if seen[signer] {
			return chainerrs.NewConsensusError(chainerrs.MissingCoSignature, fmt.Sprintf("%s signed more than once", signer.Hex()))
		}
		seen[signer] = true
	}

	return nil
}

// ApplyValidatorTxs applies validator-set membership changes and, once
// the full committee's commits and reveals are in, derives and records
// seed[height+1]. Called by state.ProcessBlock after user txs are
// applied, with height set to the just-applied block's own height.
func (e *Engine) ApplyValidatorTxs(height uint64, txs []database.SignedValidatorTx) error {
	ordered := make([]database.SignedValidatorTx, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Kind < ordered[j].Kind })

	for _, vtx := range ordered {
		switch vtx.Kind {
		case database.KindAddValidator:
			if err := e.set.Add(vtx.Target); err != nil {
				return err
			}
		case database.KindRemoveValidator:
			if err := e.set.Remove(vtx.Target); err != nil {
				return err
			}
		}
	}

	commits, reveals := extractCommitsAndReveals(txs)
	if len(commits) == 0 {
		return nil
	}

	committee, ok := e.committeeForApply(height, commits)
	if !ok {
		return nil
	}

	seed := deriveNextSeed(committee, commits, reveals)
	e.recordSeed(height+1, seed)
	e.clearFallback(height)

	return nil
}

// committeeForApply resolves height's committee at whichever
// producer-timeout fallback level actually produced it, identified by
// matching committee membership against who committed — the same
// invariant ValidateBlock already enforced for the level this block was
// accepted under. ApplyValidatorTxs only sees the validator txs, not the
// block's signatures, so it re-derives the level this way rather than
// reusing this engine's own (possibly stale, if this node never ticked
// for height) fallbackLevels entry. Falls back to the level-0 committee
// if nothing matches, so seed derivation still proceeds deterministically
// rather than silently skipping it.
func (e *Engine) committeeForApply(height uint64, commits map[signature.Address]signature.Hash) ([]signature.Address, bool) {
	seed, ok := e.seedAt(height)
	if !ok {
		return nil, false
	}

	validators := e.set.List()
	k := e.minValidators
	if k > len(validators) {
		k = len(validators)
	}

	levelZero := DeriveSchedule(validators, seed)[:k]

	for level := 0; level <= maxFallbackLevel; level++ {
		schedule := DeriveSchedule(validators, fallbackSeedAt(seed, level))
		committee := schedule[:k]

		matches := true
		for _, validator := range committee {
			if _, ok := commits[validator]; !ok {
				matches = false
				break
			}
		}
		if matches {
			return committee, true
		}
	}

	return levelZero, true
}
