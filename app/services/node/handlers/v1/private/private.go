// Package private holds the node's node-to-node API: the endpoints
// foundation/blockchain/peer's HTTP client queries and posts against for
// peer discovery, mempool sync, block sync, and rdPoS block propagation.
package private

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rdchain/node/business/web/errs"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/peer"
	"github.com/rdchain/node/foundation/blockchain/rdpos"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/state"
	"github.com/rdchain/node/foundation/web"
)

// Handlers groups the collaborators the node-to-node API needs.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Self  peer.Peer
	Peers *peer.PeerSet
	Loop  *rdpos.Loop // nil on a non-validating query node
}

// Status answers what peer.QueryStatus asks for: this node's head and
// known-peer list, plus its own signer address so the requester can learn
// where to reach this node for a future co-signature request.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var signerAddr signature.Address
	if h.Loop != nil {
		signerAddr = h.Loop.Self()
	}

	status := peer.Status{
		KnownPeers:    h.Peers.Copy(h.Self.Host),
		SignerAddress: signerAddr,
	}

	if block, ok := h.State.QueryLatestBlock(); ok {
		status.LatestBlockHash = block.Header.Hash().Hex()
		status.LatestBlockHeight = block.Header.Height
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// TxList answers peer.QueryMempool: every transaction this node's user
// mempool currently holds.
func (h Handlers) TxList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Mempool().PickBest(-1), http.StatusOK)
}

// TxSubmit answers peer.SubmitTx: a transaction gossiped in from a peer,
// admitted the same way a directly submitted one would be.
func (h Handlers) TxSubmit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.SignedTx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if _, err := h.State.ValidateForRPC(tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// ValidatorTxList answers peer.QueryValidatorMempool: every pending
// commit/reveal or membership-change transaction this node holds.
func (h Handlers) ValidatorTxList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.ValidatorPool().All(), http.StatusOK)
}

// ValidatorTxSubmit answers peer.SubmitValidatorTx.
func (h Handlers) ValidatorTxSubmit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.SignedValidatorTx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if _, err := h.State.ValidatorPool().Upsert(tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// BlockList answers peer.QueryBlocksFrom: every block from the path's
// :from height through the chain's current head, inclusive. The route's
// trailing segment is always "latest" (peer.QueryBlocksFrom's own
// convention); this node doesn't support a bounded range query.
func (h Handlers) BlockList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseHeight(web.Param(r, "from"))
	if err != nil {
		return err
	}

	latest, ok := h.State.QueryLatestBlock()
	if !ok || from > latest.Header.Height {
		return web.Respond(ctx, w, []database.Block{}, http.StatusOK)
	}

	blocks := make([]database.Block, 0, latest.Header.Height-from+1)
	for height := from; height <= latest.Header.Height; height++ {
		block, ok := h.State.QueryBlockByHeight(height)
		if !ok {
			break
		}
		blocks = append(blocks, block)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockPropose answers peer.ProposeBlock: a producer sharing a finished,
// fully co-signed block so this node can validate and apply it.
func (h Handlers) BlockPropose(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := h.State.ValidateBlock(block); err != nil {
		return errs.NewTrusted(err, http.StatusNotAcceptable)
	}
	if err := h.State.ProcessBlock(block); err != nil {
		return errs.NewTrusted(err, http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{Status: "accepted"}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlockCosign answers the co-signature request an electing producer's
// HTTPCollaborator.SendTo sends this node: validate the candidate block
// and, if this node is obligated to co-sign it, return that signature.
func (h Handlers) BlockCosign(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.Loop == nil {
		return errs.NewTrusted(fmt.Errorf("block/cosign requested on a non-validating node"), http.StatusBadRequest)
	}

	var req struct {
		Block database.Block `json:"block"`
	}
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	sig, err := h.Loop.HandleProposedBlock(rdpos.ProposedBlock{Block: req.Block})

	resp := struct {
		Signer    signature.Address   `json:"signer"`
		Signature signature.Signature `json:"signature"`
		Err       string              `json:"error,omitempty"`
	}{Signer: h.Loop.Self(), Signature: sig}

	if err != nil {
		resp.Err = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

func parseHeight(s string) (uint64, error) {
	var height uint64
	if _, err := fmt.Sscanf(s, "%d", &height); err != nil {
		return 0, fmt.Errorf("invalid height %q: %w", s, err)
	}
	return height, nil
}
