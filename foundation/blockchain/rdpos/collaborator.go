package rdpos

import (
	"context"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// Reply is what a co-signer sends back in response to a co-signature
// request: its signature over the proposed block's header hash, or an
// error if it declined (invalid block, not its turn, timed out locally).
type Reply struct {
	Signer    signature.Address
	Signature signature.Signature
	Err       error
}

// Collaborator is the P2P interface contract spec.md §4.J names: rdPoS
// never talks to a transport directly, only through this seam, so the
// consensus loop is testable without a real network and swappable onto
// whatever the peer package ends up wiring in.
type Collaborator interface {
	// Broadcast fans msg out to every known peer, at-least-once; the
	// mempool's hash-keyed dedup absorbs duplicate delivery.
	Broadcast(msg any)

	// SendTo delivers msg to exactly one peer and returns a future for its
	// reply, used to request a co-signature from a specific committee
	// member.
	SendTo(ctx context.Context, peer signature.Address, msg any) (<-chan Reply, error)

	// OnMessage registers handler to be invoked for every message this
	// node receives, regardless of sender or kind; dispatch to the right
	// mempool or consensus-loop channel is the handler's job, not
	// Collaborator's.
	OnMessage(handler func(from signature.Address, msg any))

	// Peers returns the currently reachable peer addresses.
	Peers() []signature.Address
}

// ProposedBlock is what a producer broadcasts to request co-signatures.
type ProposedBlock struct {
	Block database.Block
}
