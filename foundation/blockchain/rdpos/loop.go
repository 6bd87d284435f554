package rdpos

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/state"
)

// The consensus loop's cooperative-suspension timeouts, per spec.md §4.I's
// failure-handling clause. pollInterval governs how often the loop wakes
// to check for a new chain head; it stands in for the "sleep until a new
// chain head is observed" wording, which in a single-process design with
// no chain-head-changed channel of its own is best expressed as a short
// poll rather than a dedicated notification mechanism.
const (
	pollInterval    = 250 * time.Millisecond
	producerTimeout = 4 * time.Second
	cosignTimeout   = 2 * time.Second
)

var errNoSigningKey = errors.New("rdpos: this node holds no signing key")

// Loop drives one validator's participation in rdPoS: producing when
// elected, co-signing when elected, and otherwise just contributing its
// commit/reveal randomness tx when scheduled. It owns no state of its
// own beyond bookkeeping for the height currently in flight — everything
// durable lives in Engine or state.State.
type Loop struct {
	state  *state.State
	engine *Engine
	self      signature.Address
	evHandler state.EventHandler

	secrets map[uint64][]byte // per-height local randomness, not persisted: a restart forfeits an in-flight reveal

	// heightSince[h] is when this node's own loop first saw height h
	// pending production. tick measures elapsed time against it to
	// decide, entirely from its own clock, how far height h has advanced
	// through the producer-timeout fallback chain — see advanceFallback.
	heightSince map[uint64]time.Time

	shut chan struct{}
	wg   sync.WaitGroup
}

// NewLoop constructs a Loop. self must be a member of engine's validator
// set for this node to ever be elected; a non-validating query node
// should not construct one at all.
func NewLoop(s *state.State, engine *Engine, self signature.Address, evHandler state.EventHandler) *Loop {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Loop{
		state:       s,
		engine:      engine,
		self:        self,
		evHandler:   evHandler,
		secrets:     make(map[uint64][]byte),
		heightSince: make(map[uint64]time.Time),
		shut:        make(chan struct{}),
	}
}

// Run starts the loop's background goroutine. It returns once the
// goroutine is confirmed running.
func (l *Loop) Run() {
	started := make(chan struct{})

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		l.evHandler("rdpos: loop: started")
		defer l.evHandler("rdpos: loop: stopped")

		close(started)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var lastSeenHeight uint64
		if latest, ok := l.state.QueryLatestBlock(); ok {
			lastSeenHeight = latest.Header.Height
		}

		for {
			select {
			case <-ticker.C:
				height, changed := l.observeHead(lastSeenHeight)
				if changed {
					lastSeenHeight = height
				}
				l.tick(lastSeenHeight + 1)

			case <-l.shut:
				return
			}
		}
	}()

	<-started
}

// Shutdown stops the loop and waits for its goroutine to exit.
func (l *Loop) Shutdown() {
	close(l.shut)
	l.wg.Wait()
}

// Self returns the validator address this loop participates as.
func (l *Loop) Self() signature.Address {
	return l.self
}

// observeHead reports the chain's current height and whether it advanced
// since lastSeenHeight.
func (l *Loop) observeHead(lastSeenHeight uint64) (uint64, bool) {
	latest, ok := l.state.QueryLatestBlock()
	if !ok {
		return lastSeenHeight, false
	}
	return latest.Header.Height, latest.Header.Height != lastSeenHeight
}

// tick runs one cycle of the consensus loop for the upcoming height: work
// out this node's role and act on it. nextHeight is the height of the
// block not yet produced. Before dispatching, tick checks whether
// nextHeight has been pending, by this node's own clock, longer than
// producerTimeout and if so advances the engine's fallback level for it
// — the mechanism spec.md §4.I's "all validators advance to a fallback
// schedule and retry" describes, carried out by every validator
// independently rather than coordinated by whoever currently holds the
// producer role.
func (l *Loop) tick(nextHeight uint64) {
	l.pruneHeightSince(nextHeight)

	since, seen := l.heightSince[nextHeight]
	if !seen {
		since = time.Now()
		l.heightSince[nextHeight] = since
	}

	if level := int(time.Since(since) / producerTimeout); level > l.engine.fallbackLevelFor(nextHeight) {
		applied := l.engine.advanceFallback(nextHeight, level)
		l.evHandler("rdpos: loop: tick: height %d: no block after %s, fallback schedule level %d in effect", nextHeight, time.Since(since).Round(time.Second), applied)
	}

	committee, ok := l.engine.committeeFor(nextHeight)
	if !ok {
		return
	}

	role := scheduleIndex(committee, l.self)

	switch {
	case role == 0:
		l.runProducer(nextHeight, committee)
	case role > 0:
		l.contributeRandomness(nextHeight)
	default:
		// Not in the committee at all: idle, per spec.md §4.I step 5.
	}
}

// pruneHeightSince drops every heightSince entry below current: once a
// height is no longer the pending one, its fallback-timing bookkeeping
// is done.
func (l *Loop) pruneHeightSince(current uint64) {
	for h := range l.heightSince {
		if h < current {
			delete(l.heightSince, h)
		}
	}
}

// contributeRandomness submits this validator's commit (and, once its own
// commit is already pooled, its reveal) for height, if it hasn't already.
// A fresh secret is drawn the first time height is seen; the commit and
// reveal are both local-only mempool inserts here — broadcasting them is
// the caller's Collaborator's job once wired to a real network.
func (l *Loop) contributeRandomness(height uint64) {
	secret, exists := l.secrets[height]
	if !exists {
		hash, err := signature.RandomHash()
		if err != nil {
			l.evHandler("rdpos: loop: contributeRandomness: generating secret: %s", err)
			return
		}
		secret = hash.Bytes()
		l.secrets[height] = secret
	}

	committed := signature.Keccak256(secret)

	if commitTx, err := l.engine.signRandomHash(height, committed); err == nil {
		l.engine.validatorPool.Upsert(commitTx)
	}

	if seedTx, err := l.engine.signRandomSeed(height, signature.HashFromBytes(secret)); err == nil {
		l.engine.validatorPool.Upsert(seedTx)
	}
}

// runProducer carries out spec.md §4.I step 3: once the committee's
// commits/seeds are all pooled, assemble and sign the block, collect
// co-signatures, and confirm application. It is called once per tick and
// does not itself wait out producerTimeout — a committee not yet ready
// just returns, and tick calls back in on its next pollInterval pass.
// Escalating to a fallback schedule once nothing has produced within
// producerTimeout is tick's job, not this method's, so an elected
// producer that never hears back from its committee doesn't need to
// coordinate a "give up" decision with anyone: every validator's own
// tick reaches the same fallback level on its own clock, and whichever
// address that schedule elects simply becomes the next producer to try.
func (l *Loop) runProducer(height uint64, committee []signature.Address) {
	l.contributeRandomness(height)

	if !l.committeeRandomnessReady(height, committee) {
		return
	}

	block, err := l.state.CreateNewBlock(-1, time.Now())
	if err != nil {
		l.evHandler("rdpos: loop: runProducer: height %d: building block: %s", height, err)
		return
	}

	block = l.collectCoSignatures(block, committee)

	if err := l.state.ValidateBlock(block); err != nil {
		l.evHandler("rdpos: loop: runProducer: height %d: self-validation failed: %s", height, err)
		return
	}

	if err := l.state.ProcessBlock(block); err != nil {
		l.evHandler("rdpos: loop: runProducer: height %d: applying block: %s", height, err)
		return
	}

	l.evHandler("rdpos: loop: runProducer: height %d: applied", height)
}

// committeeRandomnessReady reports whether every committee member's
// commit is pooled and, for the reveal phase, whether every commit
// already has a matching reveal pooled too.
func (l *Loop) committeeRandomnessReady(height uint64, committee []signature.Address) bool {
	for _, validator := range committee {
		if _, ok := l.engine.validatorPool.FindByKindAndSender(database.KindRandomHash, validator); !ok {
			return false
		}
	}
	for _, validator := range committee {
		if _, ok := l.engine.validatorPool.FindByKindAndSender(database.KindRandomSeed, validator); !ok {
			return false
		}
	}
	return true
}

// collectCoSignatures requests a signature over block's header hash from
// every co-signer in committee[1:], replacing any that doesn't answer
// within cosignTimeout with the next validator beyond committee[k-1], per
// spec.md §4.I's failure-handling clause. With no Collaborator wired
// (e.g. in tests or a single-node dev setup) it returns block unchanged,
// leaving self-validation to fail loudly rather than silently fabricate
// signatures.
func (l *Loop) collectCoSignatures(block database.Block, committee []signature.Address) database.Block {
	if l.engine.p2p == nil {
		return block
	}

	reserve := l.reserveCoSigners(block.Header.Height, committee)
	sigs := make([]signature.Signature, 0, len(committee)-1)

	for _, cosigner := range committee[1:] {
		sig, ok := l.requestCoSignature(block, cosigner)
		for !ok && len(reserve) > 0 {
			cosigner, reserve = reserve[0], reserve[1:]
			sig, ok = l.requestCoSignature(block, cosigner)
		}
		if ok {
			sigs = append(sigs, sig)
		}
	}

	block.ValidatorSigs = sigs
	return block
}

// reserveCoSigners is the entries of schedule[h] beyond committee[k-1], in
// schedule order, that a failed co-signer can be replaced by.
func (l *Loop) reserveCoSigners(height uint64, committee []signature.Address) []signature.Address {
	schedule, ok := l.engine.scheduleFor(height)
	if !ok || len(schedule) <= len(committee) {
		return nil
	}
	return schedule[len(committee):]
}

// requestCoSignature asks cosigner to sign block's header hash, returning
// ok=false on error or cosignTimeout.
func (l *Loop) requestCoSignature(block database.Block, cosigner signature.Address) (signature.Signature, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), cosignTimeout)
	defer cancel()

	replies, err := l.engine.p2p.SendTo(ctx, cosigner, ProposedBlock{Block: block})
	if err != nil {
		return signature.Signature{}, false
	}

	select {
	case reply := <-replies:
		if reply.Err != nil || reply.Signer != cosigner {
			return signature.Signature{}, false
		}
		return reply.Signature, true
	case <-ctx.Done():
		return signature.Signature{}, false
	}
}

// HandleProposedBlock is what a co-signer's Collaborator.OnMessage handler
// should call for an incoming ProposedBlock: re-validate every invariant
// and return the signature to send back, or an error to decline.
func (l *Loop) HandleProposedBlock(proposed ProposedBlock) (signature.Signature, error) {
	if err := l.state.ValidateBlock(proposed.Block); err != nil {
		return signature.Signature{}, err
	}

	if l.engine.self == nil {
		return signature.Signature{}, errNoSigningKey
	}

	return proposed.Block.SignHeader(l.engine.self)
}
