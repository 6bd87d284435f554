package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/rdchain/node/app/services/node/handlers"
	"github.com/rdchain/node/foundation/blockchain/chain"
	"github.com/rdchain/node/foundation/blockchain/genesis"
	"github.com/rdchain/node/foundation/blockchain/mempool"
	"github.com/rdchain/node/foundation/blockchain/peer"
	"github.com/rdchain/node/foundation/blockchain/rdpos"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/state"
	"github.com/rdchain/node/foundation/blockchain/storage"
	"github.com/rdchain/node/foundation/blockchain/worker"
	"github.com/rdchain/node/foundation/events"
	"github.com/rdchain/node/foundation/logger"
	"github.com/rdchain/node/foundation/nameservice"
)

// build is the git version of this program, set using build flags in the
// makefile.
var build = "develop"

func main() {
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			ValidatorName string   `conf:"default:validator1"`
			GenesisPath   string   `conf:"default:zblock/genesis.json"`
			MempoolStrat  string   `conf:"default:Insertion"`
			KnownPeers    []string `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
			NonValidating bool     `conf:"default:false"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for addr, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", addr.Hex())
	}

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	var signingKey *ecdsa.PrivateKey
	if !cfg.State.NonValidating {
		key, err := crypto.LoadECDSA(fmt.Sprintf("%s%s.ecdsa", cfg.NameService.Folder, cfg.State.ValidatorName))
		if err != nil {
			return fmt.Errorf("unable to load private key for validator: %w", err)
		}
		signingKey = key
	}

	peerSet := peer.NewPeerSet()
	for _, host := range cfg.State.KnownPeers {
		peerSet.Add(peer.New(host))
	}

	self := peer.New(cfg.Web.PrivateHost)

	collab := peer.NewHTTPCollaborator(self, peerSet)

	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	store := storage.New()

	c, err := chain.New(store)
	if err != nil {
		return fmt.Errorf("unable to load chain: %w", err)
	}

	mp, err := mempool.NewWithStrategy(cfg.State.MempoolStrat)
	if err != nil {
		return fmt.Errorf("unable to construct mempool: %w", err)
	}

	vp := mempool.NewValidatorPool()

	engine, err := rdpos.NewEngine(rdpos.Config{
		Store:         store,
		ValidatorPool: vp,
		GenesisSeed:   gen.Seed,
		GenesisSet:    gen.Validators,
		MinValidators: genesis.MinValidators,
		ChainID:       gen.ChainID,
		Self:          signingKey,
		P2P:           collab,
	})
	if err != nil {
		return fmt.Errorf("unable to construct consensus engine: %w", err)
	}

	st := state.New(state.Config{
		Genesis:       gen,
		Chain:         c,
		Mempool:       mp,
		ValidatorPool: vp,
		Consensus:     engine,
	})

	var loop *rdpos.Loop
	if signingKey != nil {
		signerAddr := signature.PublicKeyToAddress(signingKey.PublicKey)
		loop = rdpos.NewLoop(st, engine, signerAddr, ev)
		loop.Run()
		defer loop.Shutdown()
	}

	w := worker.Run(st, self, peerSet, collab, ev)
	defer w.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log)

	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
		Self:     self,
		Peers:    peerSet,
		Loop:     loop,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Self:     self,
		Peers:    peerSet,
		Loop:     loop,
	})

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
