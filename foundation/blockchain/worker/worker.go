// Package worker runs the background goroutines a node needs regardless
// of whether it is a validator: discovering and syncing with peers, and
// gossiping newly submitted transactions. Producing and co-signing blocks
// is rdpos.Loop's job; this package never touches the validator schedule.
package worker

import (
	"sync"
	"time"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/peer"
	"github.com/rdchain/node/foundation/blockchain/state"
)

// peerUpdateInterval is how often this node asks its known peers for their
// peer lists and current head.
const peerUpdateInterval = time.Minute

// maxTxShareRequests is the most pending share requests (user or validator
// transactions) this node will queue before dropping new ones. A buffered
// channel of this size keeps sharing simple at the cost of occasionally
// dropping a share under heavy submission load; the tx will still reach
// peers on their own sync pass.
const maxTxShareRequests = 100

// =============================================================================

// Worker runs peer discovery/sync and transaction gossip for the node.
type Worker struct {
	state *state.State
	self  peer.Peer
	peers *peer.PeerSet

	wg     sync.WaitGroup
	ticker time.Ticker
	shut   chan struct{}

	txSharing          chan database.SignedTx
	validatorTxSharing chan database.SignedValidatorTx

	collab *peer.HTTPCollaborator

	evHandler state.EventHandler
}

// Run constructs a Worker and starts its background goroutines, returning
// only once every goroutine is confirmed running. collab may be nil; when
// set, every peer's reported signer address is registered with it so
// rdpos.Loop can later resolve a co-signer's address to a host.
func Run(s *state.State, self peer.Peer, peers *peer.PeerSet, collab *peer.HTTPCollaborator, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		state:              s,
		self:               self,
		peers:              peers,
		collab:             collab,
		ticker:             *time.NewTicker(peerUpdateInterval),
		shut:               make(chan struct{}),
		txSharing:          make(chan database.SignedTx, maxTxShareRequests),
		validatorTxSharing: make(chan database.SignedValidatorTx, maxTxShareRequests),
		evHandler:          evHandler,
	}

	w.Sync()

	operations := []func(){
		w.peerOperations,
		w.shareTxOperations,
	}

	g := len(operations)
	w.wg.Add(g)

	hasStarted := make(chan bool)
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates every background goroutine.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	close(w.shut)
	w.wg.Wait()
}

// SignalShareTx queues tx to be gossiped to every known peer. If the queue
// is full the request is dropped; peers will still pick tx up on their
// next sync pass.
func (w *Worker) SignalShareTx(tx database.SignedTx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: queued")
	default:
		w.evHandler("worker: SignalShareTx: queue full, dropping")
	}
}

// SignalShareValidatorTx queues a validator transaction (commit, reveal,
// or membership change) to be gossiped to every known peer.
func (w *Worker) SignalShareValidatorTx(tx database.SignedValidatorTx) {
	select {
	case w.validatorTxSharing <- tx:
		w.evHandler("worker: SignalShareValidatorTx: queued")
	default:
		w.evHandler("worker: SignalShareValidatorTx: queue full, dropping")
	}
}

// isShutdown reports whether a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
