package worker

import (
	"github.com/rdchain/node/foundation/blockchain/peer"
)

// Sync brings this node up to date against every known peer once at
// startup: their peer lists, their pooled transactions (both mempools),
// and any blocks they hold that this node doesn't yet.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, pr := range w.peers.Copy(w.self.Host) {
		status, err := peer.QueryStatus(pr)
		if err != nil {
			w.evHandler("worker: sync: queryStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}
		if w.collab != nil && !status.SignerAddress.IsZero() {
			w.collab.RegisterPeerAddress(status.SignerAddress, pr)
		}

		w.addNewPeers(status.KnownPeers)

		w.syncMempools(pr)

		var localHeight uint64
		if latest, ok := w.state.Chain().Latest(); ok {
			localHeight = latest.Header.Height
		}

		if status.LatestBlockHeight > localHeight {
			w.evHandler("worker: sync: %s: has blocks this node lacks: latest[%d] local[%d]", pr.Host, status.LatestBlockHeight, localHeight)
			w.syncBlocks(pr, localHeight+1)
		}
	}
}

// syncMempools pulls every pending user and validator transaction pr
// holds into this node's own pools.
func (w *Worker) syncMempools(pr peer.Peer) {
	txs, err := peer.QueryMempool(pr)
	if err != nil {
		w.evHandler("worker: sync: queryMempool: %s: ERROR: %s", pr.Host, err)
	}
	for _, tx := range txs {
		if _, err := w.state.Mempool().Upsert(tx); err != nil {
			w.evHandler("worker: sync: upsert user tx: %s: ERROR: %s", pr.Host, err)
		}
	}

	validatorTxs, err := peer.QueryValidatorMempool(pr)
	if err != nil {
		w.evHandler("worker: sync: queryValidatorMempool: %s: ERROR: %s", pr.Host, err)
	}
	for _, tx := range validatorTxs {
		if _, err := w.state.ValidatorPool().Upsert(tx); err != nil {
			w.evHandler("worker: sync: upsert validator tx: %s: ERROR: %s", pr.Host, err)
		}
	}
}

// syncBlocks pulls every block from height on from pr and applies each in
// order. A block that fails validation stops the sync against this peer
// without affecting any block already applied.
func (w *Worker) syncBlocks(pr peer.Peer, height uint64) {
	blocks, err := peer.QueryBlocksFrom(pr, height)
	if err != nil {
		w.evHandler("worker: sync: queryBlocksFrom: %s: ERROR: %s", pr.Host, err)
		return
	}

	for _, block := range blocks {
		if err := w.state.ValidateBlock(block); err != nil {
			w.evHandler("worker: sync: %s: block %d failed validation: %s", pr.Host, block.Header.Height, err)
			return
		}
		if err := w.state.ProcessBlock(block); err != nil {
			w.evHandler("worker: sync: %s: block %d failed to apply: %s", pr.Host, block.Header.Height, err)
			return
		}
	}
}
