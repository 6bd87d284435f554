package worker

import (
	"github.com/rdchain/node/foundation/blockchain/peer"
)

// peerOperations periodically asks every known peer for their own
// known-peer list, growing this node's view of the network over time.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation asks every known peer for its status, folds any new
// peers it reports into this node's own set, and prunes any peer that
// fails to respond.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, pr := range w.peers.Copy(w.self.Host) {
		status, err := peer.QueryStatus(pr)
		if err != nil {
			w.evHandler("worker: runPeersOperation: queryStatus: %s: ERROR: %s", pr.Host, err)
			w.peers.Remove(pr)
			continue
		}

		if w.collab != nil && !status.SignerAddress.IsZero() {
			w.collab.RegisterPeerAddress(status.SignerAddress, pr)
		}

		w.addNewPeers(status.KnownPeers)
	}
}

// addNewPeers adds every peer in knownPeers this node doesn't already
// track, skipping itself.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	for _, pr := range knownPeers {
		if pr.Match(w.self.Host) {
			continue
		}

		if w.peers.Add(pr) {
			w.evHandler("worker: addNewPeers: adding peer-node %s", pr)
		}
	}
}
