package worker

import (
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/peer"
)

// shareTxOperations drains both share queues and gossips whatever arrives
// to every known peer.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(tx)
			}
		case tx := <-w.validatorTxSharing:
			if !w.isShutdown() {
				w.runShareValidatorTxOperation(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation shares a user transaction with every known peer.
func (w *Worker) runShareTxOperation(tx database.SignedTx) {
	for _, pr := range w.peers.Copy(w.self.Host) {
		if err := peer.SubmitTx(pr, tx); err != nil {
			w.evHandler("worker: runShareTxOperation: %s: WARNING: %s", pr.Host, err)
		}
	}
}

// runShareValidatorTxOperation shares a validator transaction with every
// known peer.
func (w *Worker) runShareValidatorTxOperation(tx database.SignedValidatorTx) {
	for _, pr := range w.peers.Copy(w.self.Host) {
		if err := peer.SubmitValidatorTx(pr, tx); err != nil {
			w.evHandler("worker: runShareValidatorTxOperation: %s: WARNING: %s", pr.Host, err)
		}
	}
}
