// Package v1 contains the full set of handler functions and routes
// supported by the v1 web API.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rdchain/node/app/services/node/handlers/v1/private"
	"github.com/rdchain/node/app/services/node/handlers/v1/public"
	"github.com/rdchain/node/foundation/blockchain/peer"
	"github.com/rdchain/node/foundation/blockchain/rdpos"
	"github.com/rdchain/node/foundation/blockchain/state"
	"github.com/rdchain/node/foundation/events"
	"github.com/rdchain/node/foundation/nameservice"
	"github.com/rdchain/node/foundation/web"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
	Self  peer.Peer
	Peers *peer.PeerSet
	Loop  *rdpos.Loop
}

// PublicRoutes binds the externally facing JSON-RPC endpoint and the
// websocket event feed.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodPost, version, "/rpc", pbl.RPC)
	app.Handle(http.MethodGet, version, "/events", pbl.Events)
}

// PrivateRoutes binds the node-to-node API every peer.HTTPCollaborator
// and sync pass talks to, under the /v1/node prefix peer/net.go's
// baseURL convention expects.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Self:  cfg.Self,
		Peers: cfg.Peers,
		Loop:  cfg.Loop,
	}

	const group = version + "/node"

	app.Handle(http.MethodGet, group, "/status", prv.Status)
	app.Handle(http.MethodGet, group, "/tx/list", prv.TxList)
	app.Handle(http.MethodPost, group, "/tx/submit", prv.TxSubmit)
	app.Handle(http.MethodGet, group, "/validatortx/list", prv.ValidatorTxList)
	app.Handle(http.MethodPost, group, "/validatortx/submit", prv.ValidatorTxSubmit)
	app.Handle(http.MethodGet, group, "/block/list/:from/latest", prv.BlockList)
	app.Handle(http.MethodPost, group, "/block/propose", prv.BlockPropose)
	app.Handle(http.MethodPost, group, "/block/cosign", prv.BlockCosign)
}
