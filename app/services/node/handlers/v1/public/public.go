// Package public holds the node's externally facing API: a JSON-RPC
// endpoint exposing the eth_* subset spec.md §6 names, and a websocket
// feed of the node's internal log/event stream.
package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/state"
	"github.com/rdchain/node/foundation/events"
	"github.com/rdchain/node/foundation/nameservice"
	"github.com/rdchain/node/foundation/web"
)

// Handlers groups the collaborators the public API needs.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// RPC is the single entry point for every eth_* method this node
// understands. One endpoint dispatching on request.Method matches
// standard JSON-RPC transport (a single POST /v1/rpc) rather than a
// distinct REST route per method.
func (h Handlers) RPC(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req request
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	resp := h.dispatch(req)
	return web.Respond(ctx, w, resp, http.StatusOK)
}

func (h Handlers) dispatch(req request) response {
	switch req.Method {
	case "eth_sendRawTransaction":
		return h.sendRawTransaction(req)
	case "eth_call":
		return newErrorResponse(req.ID, -32000, "eth_call is not supported: this node executes plain value transfers only, the embedded EVM execution environment is not implemented")
	case "eth_getBalance":
		return h.getBalance(req)
	case "eth_getTransactionCount":
		return h.getTransactionCount(req)
	case "eth_blockNumber":
		return h.blockNumber(req)
	case "eth_getBlockByNumber":
		return h.getBlockByNumber(req)
	case "eth_getBlockByHash":
		return h.getBlockByHash(req)
	case "eth_getTransactionByHash":
		return h.getTransactionByHash(req)
	case "eth_getLogs":
		// Logs are emitted by EVM execution, which this node doesn't
		// perform; every query returns an empty set rather than an error.
		return newResponse(req.ID, []any{})
	default:
		return newErrorResponse(req.ID, errMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (h Handlers) sendRawTransaction(req request) response {
	var params []database.SignedTx
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
		return newErrorResponse(req.ID, errInvalidParams, "eth_sendRawTransaction expects params: [signedTx]")
	}

	result, err := h.State.ValidateForRPC(params[0])
	if err != nil {
		if ve, ok := err.(*chainerrs.ValidationError); ok {
			return newErrorResponse(req.ID, ve.Code, ve.Msg)
		}
		return newErrorResponse(req.ID, errInvalidParams, err.Error())
	}

	txHash, err := params[0].TxHash()
	if err != nil {
		return newErrorResponse(req.ID, errInvalidParams, err.Error())
	}

	h.Evts.Send(fmt.Sprintf("rpc: sendRawTransaction: %s: %s", txHash.Hex(), result.Message))

	return newResponse(req.ID, txHash.Hex())
}

func (h Handlers) getBalance(req request) response {
	addr, err := paramAddress(req.Params, 0)
	if err != nil {
		return newErrorResponse(req.ID, errInvalidParams, err.Error())
	}

	account, _ := h.State.QueryAccount(addr)
	return newResponse(req.ID, fmt.Sprintf("0x%x", account.Balance))
}

func (h Handlers) getTransactionCount(req request) response {
	addr, err := paramAddress(req.Params, 0)
	if err != nil {
		return newErrorResponse(req.ID, errInvalidParams, err.Error())
	}

	account, _ := h.State.QueryAccount(addr)
	return newResponse(req.ID, account.Nonce)
}

func (h Handlers) blockNumber(req request) response {
	block, ok := h.State.QueryLatestBlock()
	if !ok {
		return newResponse(req.ID, uint64(0))
	}
	return newResponse(req.ID, block.Header.Height)
}

func (h Handlers) getBlockByNumber(req request) response {
	var params []json.RawMessage
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return newErrorResponse(req.ID, errInvalidParams, "eth_getBlockByNumber expects params: [blockNumber|\"latest\", fullTx]")
	}

	var tag string
	if err := json.Unmarshal(params[0], &tag); err == nil && tag == "latest" {
		block, ok := h.State.QueryLatestBlock()
		if !ok {
			return newResponse(req.ID, nil)
		}
		return newResponse(req.ID, block)
	}

	var height uint64
	if err := json.Unmarshal(params[0], &height); err != nil {
		return newErrorResponse(req.ID, errInvalidParams, "block number must be a quantity or \"latest\"")
	}

	block, ok := h.State.QueryBlockByHeight(height)
	if !ok {
		return newResponse(req.ID, nil)
	}
	return newResponse(req.ID, block)
}

func (h Handlers) getBlockByHash(req request) response {
	hash, err := paramHash(req.Params, 0)
	if err != nil {
		return newErrorResponse(req.ID, errInvalidParams, err.Error())
	}

	block, ok := h.State.QueryBlockByHash(hash)
	if !ok {
		return newResponse(req.ID, nil)
	}
	return newResponse(req.ID, block)
}

func (h Handlers) getTransactionByHash(req request) response {
	hash, err := paramHash(req.Params, 0)
	if err != nil {
		return newErrorResponse(req.ID, errInvalidParams, err.Error())
	}

	tx, _, ok := h.State.QueryTransaction(hash)
	if !ok {
		return newResponse(req.ID, nil)
	}
	return newResponse(req.ID, tx)
}

func paramAddress(raw json.RawMessage, idx int) (signature.Address, error) {
	var params []string
	if err := json.Unmarshal(raw, &params); err != nil || idx >= len(params) {
		return signature.Address{}, fmt.Errorf("expected an address parameter at index %d", idx)
	}
	return signature.AddressFromHex(params[idx])
}

func paramHash(raw json.RawMessage, idx int) (signature.Hash, error) {
	var params []string
	if err := json.Unmarshal(raw, &params); err != nil || idx >= len(params) {
		return signature.Hash{}, fmt.Errorf("expected a hash parameter at index %d", idx)
	}
	var h signature.Hash
	if err := h.UnmarshalText([]byte(params[idx])); err != nil {
		return signature.Hash{}, err
	}
	return h, nil
}

// Events streams the node's internal log/event feed to a connected
// websocket client: the same acquire/release-by-trace-id pattern and
// one-second keepalive ping the teacher's handler uses.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return nil
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
