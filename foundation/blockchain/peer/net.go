package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/rdpos"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// baseURL is the path prefix every peer exposes its node-to-node API
// under. Host never includes a scheme, matching Peer.Host's convention.
const baseURL = "http://%s/v1/node"

// Status mirrors the body of a peer's /v1/node/status response: enough
// for a requester to decide whether it's behind and who else it knows.
type Status struct {
	LatestBlockHash   string            `json:"latest_block_hash"`
	LatestBlockHeight uint64            `json:"latest_block_height"`
	KnownPeers        []Peer            `json:"known_peers"`
	SignerAddress     signature.Address `json:"signer_address"`
}

// QueryStatus asks pr for its current head and known-peer list.
func QueryStatus(pr Peer) (Status, error) {
	var status Status
	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))
	if err := send(http.MethodGet, url, nil, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// QueryMempool asks pr for every transaction in its user mempool.
func QueryMempool(pr Peer) ([]database.SignedTx, error) {
	var txs []database.SignedTx
	url := fmt.Sprintf("%s/tx/list", fmt.Sprintf(baseURL, pr.Host))
	if err := send(http.MethodGet, url, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// QueryValidatorMempool asks pr for every pending validator transaction
// (commits, reveals, membership changes) it currently holds.
func QueryValidatorMempool(pr Peer) ([]database.SignedValidatorTx, error) {
	var txs []database.SignedValidatorTx
	url := fmt.Sprintf("%s/validatortx/list", fmt.Sprintf(baseURL, pr.Host))
	if err := send(http.MethodGet, url, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// QueryBlocksFrom asks pr for every block from height on, inclusive.
func QueryBlocksFrom(pr Peer, height uint64) ([]database.Block, error) {
	var blocks []database.Block
	url := fmt.Sprintf("%s/block/list/%d/latest", fmt.Sprintf(baseURL, pr.Host), height)
	if err := send(http.MethodGet, url, nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// SubmitTx shares a user transaction with pr.
func SubmitTx(pr Peer, tx database.SignedTx) error {
	url := fmt.Sprintf("%s/tx/submit", fmt.Sprintf(baseURL, pr.Host))
	return send(http.MethodPost, url, tx, nil)
}

// SubmitValidatorTx shares a validator transaction (commit, reveal, or
// membership change) with pr.
func SubmitValidatorTx(pr Peer, tx database.SignedValidatorTx) error {
	url := fmt.Sprintf("%s/validatortx/submit", fmt.Sprintf(baseURL, pr.Host))
	return send(http.MethodPost, url, tx, nil)
}

// ProposeBlock sends a newly produced block to pr so pr can validate and
// (if pr is in the committee) store it, returning its accept/reject verdict.
func ProposeBlock(pr Peer, block database.Block) error {
	url := fmt.Sprintf("%s/block/propose", fmt.Sprintf(baseURL, pr.Host))

	var status struct {
		Status string `json:"status"`
	}
	return send(http.MethodPost, url, block, &status)
}

// send is the shared HTTP request/response helper every peer-facing query
// and broadcast above is built from: marshal dataSend (if any) as the
// request body, unmarshal the response body into dataRecv (if any), and
// surface a non-2xx response's body as the error text.
func send(method, url string, dataSend, dataRecv any) error {
	var req *http.Request

	switch {
	case dataSend != nil:
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		r, err := http.NewRequest(method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		r.Header.Set("Content-Type", "application/json")
		req = r

	default:
		r, err := http.NewRequest(method, url, nil)
		if err != nil {
			return err
		}
		req = r
	}

	var client http.Client
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================
// rdpos.Collaborator

// coSignRequest/coSignResponse are the wire shapes ProposedBlock co-sign
// requests travel as: the block to sign and the signature (or error) sent
// back.
type coSignRequest struct {
	Block database.Block `json:"block"`
}

type coSignResponse struct {
	Signer    signature.Address   `json:"signer"`
	Signature signature.Signature `json:"signature"`
	Err       string              `json:"error,omitempty"`
}

// HTTPCollaborator implements rdpos.Collaborator over the same node-to-node
// HTTP API the rest of this file talks: broadcasting a message is one POST
// per known peer, and requesting a co-signature is a single synchronous
// POST wrapped in a goroutine so it can be consumed as rdpos.Collaborator's
// channel-based SendTo contract expects.
type HTTPCollaborator struct {
	self  Peer
	peers *PeerSet

	mu     sync.RWMutex
	addrOf map[signature.Address]Peer
}

// NewHTTPCollaborator constructs a Collaborator that gossips over the
// known peers held in peers, identifying outbound requests as self.
func NewHTTPCollaborator(self Peer, peers *PeerSet) *HTTPCollaborator {
	return &HTTPCollaborator{
		self:   self,
		peers:  peers,
		addrOf: make(map[signature.Address]Peer),
	}
}

// RegisterPeerAddress records that addr's validator identity is reachable
// at pr, so SendTo and Peers can resolve it later. The status-exchange
// loop in package worker calls this as it learns each peer's signing
// address.
func (c *HTTPCollaborator) RegisterPeerAddress(addr signature.Address, pr Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addrOf[addr] = pr
}

// Broadcast fans msg out to every known peer. Only the two validator-tx
// and block-proposal shapes rdpos actually sends are recognized; anything
// else is dropped, since there is no wire shape to carry it yet.
func (c *HTTPCollaborator) Broadcast(msg any) {
	for _, pr := range c.peers.Copy(c.self.Host) {
		switch m := msg.(type) {
		case database.SignedValidatorTx:
			_ = SubmitValidatorTx(pr, m)
		case rdpos.ProposedBlock:
			_ = ProposeBlock(pr, m.Block)
		}
	}
}

// SendTo requests a co-signature from peer over msg, which must be a
// rdpos.ProposedBlock. The HTTP round trip runs in its own goroutine so a
// slow or unreachable peer can't block the caller past ctx's deadline.
func (c *HTTPCollaborator) SendTo(ctx context.Context, peerAddr signature.Address, msg any) (<-chan rdpos.Reply, error) {
	proposed, ok := msg.(rdpos.ProposedBlock)
	if !ok {
		return nil, fmt.Errorf("peer: HTTPCollaborator: SendTo: unsupported message type %T", msg)
	}

	pr, ok := c.hostFor(peerAddr)
	if !ok {
		return nil, fmt.Errorf("peer: HTTPCollaborator: SendTo: unknown peer %s", peerAddr.Hex())
	}

	replies := make(chan rdpos.Reply, 1)

	go func() {
		url := fmt.Sprintf("%s/block/cosign", fmt.Sprintf(baseURL, pr.Host))

		var resp coSignResponse
		err := send(http.MethodPost, url, coSignRequest{Block: proposed.Block}, &resp)

		select {
		case <-ctx.Done():
		case replies <- replyFrom(peerAddr, resp, err):
		}
	}()

	return replies, nil
}

func replyFrom(peerAddr signature.Address, resp coSignResponse, err error) rdpos.Reply {
	if err != nil {
		return rdpos.Reply{Signer: peerAddr, Err: err}
	}
	if resp.Err != "" {
		return rdpos.Reply{Signer: peerAddr, Err: errors.New(resp.Err)}
	}
	return rdpos.Reply{Signer: resp.Signer, Signature: resp.Signature}
}

// OnMessage is a no-op for HTTPCollaborator: inbound messages arrive as
// ordinary HTTP requests handled by the web layer's node-API routes, not
// through a shared dispatch callback. The web layer calls rdpos.Loop's
// HandleProposedBlock and the validator pool's Upsert directly from its
// handlers instead of routing through this method.
func (c *HTTPCollaborator) OnMessage(handler func(from signature.Address, msg any)) {}

// Peers returns every peer address this collaborator currently resolves a
// host for.
func (c *HTTPCollaborator) Peers() []signature.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]signature.Address, 0, len(c.addrOf))
	for addr := range c.addrOf {
		out = append(out, addr)
	}
	return out
}

// hostFor resolves a validator address to the Peer host HTTPCollaborator
// should dial. The mapping is maintained by RegisterPeerAddress as this
// node learns which address belongs to which host.
func (c *HTTPCollaborator) hostFor(addr signature.Address) (Peer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pr, ok := c.addrOf[addr]
	return pr, ok
}
