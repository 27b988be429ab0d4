package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/tinynode/tinynode/internal/config"
	"github.com/tinynode/tinynode/internal/consensus"
	"github.com/tinynode/tinynode/internal/genesis"
	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/mempool"
	"github.com/tinynode/tinynode/internal/node"
	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/rpc"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/wallet"
)

var log = logging.GetLogger("tinynode")

// runAction is the default command: bring up every component in the
// order tinychain's tiny.New/tiny.Start wire them (storage -> mempool ->
// consensus -> network -> orchestrator -> optional RPC), then block
// until a termination signal arrives (spec.md §4.8 steps 1 and 6).
func runAction(c *cli.Context) error {
	logging.Init(c.GlobalString(logLevelFlag.Name))

	cfg, err := loadConfig(c)
	if err != nil {
		return configErr(err)
	}

	store, err := storage.Open(cfg.GetString(config.KeyStorageDBPath), cfg.GetBool(config.KeyStorageCreateIfMissing))
	if err != nil {
		return configErr(errors.Wrap(err, "open storage"))
	}

	doc, err := genesis.Load(cfg.GetString(config.KeyGenesisFile))
	if err != nil {
		store.Close()
		return configErr(err)
	}
	validators, err := doc.ValidatorSet()
	if err != nil {
		store.Close()
		return configErr(err)
	}

	pool := mempool.New(mempool.Config{MaxTransactions: cfg.GetInt(config.KeyMempoolMaxTransactions)})

	engine := consensus.New(validators)
	engine.SetBlockInterval(cfg.BlockInterval())
	engine.SetMaxClockSkew(cfg.MaxClockSkew())

	identity, err := loadOrCreateIdentity(cfg)
	if err != nil {
		store.Close()
		return networkErr(err)
	}
	listenAddr := fmt.Sprintf("%s:%d", cfg.GetString(config.KeyNetworkListenAddr), cfg.GetInt(config.KeyNetworkListenPort))
	bootstrap := p2p.ResolveBootstrapList(cfg.GetStringSlice(config.KeyNetworkBootstrapPeers))
	peer, err := p2p.New(identity, listenAddr, bootstrap, cfg.GetInt(config.KeyNetworkMaxPeers), cfg.GetBool(config.KeyNetworkLocalDiscovery))
	if err != nil {
		store.Close()
		return networkErr(err)
	}

	opts, err := validatorOptions(cfg)
	if err != nil {
		store.Close()
		return walletErr(err)
	}
	opts.ReorgDepth = uint64(cfg.GetInt(config.KeyConsensusReorgDepth))

	n := node.New(cfg, store, pool, engine, peer, opts)
	if store.IsEmpty() {
		initial, err := doc.InitialAccounts()
		if err != nil {
			store.Close()
			return configErr(err)
		}
		block, err := doc.Block()
		if err != nil {
			store.Close()
			return configErr(err)
		}
		if err := n.Bootstrap(block, initial); err != nil {
			store.Close()
			return configErr(err)
		}
	}

	if err := n.Start(); err != nil {
		return networkErr(err)
	}
	defer n.Stop()

	var rpcSrv *rpc.Server
	if cfg.GetBool(config.KeyRPCEnabled) {
		rpcSrv = rpc.New(cfg.GetString(config.KeyRPCListenAddr), n)
		if err := rpcSrv.Start(); err != nil {
			return networkErr(err)
		}
		defer rpcSrv.Stop()
	}

	waitForShutdown()
	log.Info("shutting down")
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.GlobalString(configFlag.Name)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "config file %q", path)
	}
	return config.New(path), nil
}

// loadOrCreateIdentity loads the peer identity persisted at
// network.identity_path, generating and persisting a fresh one on first
// run. An empty path means an ephemeral identity is generated for this
// process only.
func loadOrCreateIdentity(cfg *config.Config) (*p2p.Identity, error) {
	path := cfg.GetString(config.KeyNetworkIdentityPath)
	if path == "" {
		return p2p.NewIdentity()
	}
	if data, err := os.ReadFile(path); err == nil {
		return p2p.IdentityFromPrivKeyBytes(data)
	}
	identity, err := p2p.NewIdentity()
	if err != nil {
		return nil, err
	}
	raw, err := identity.Bytes()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return nil, errors.Wrap(err, "persist peer identity")
	}
	return identity, nil
}

// validatorOptions loads the validator signing key named by
// validator.private_key_path when validator.enabled is set, matching
// spec.md §6's validator key file format.
func validatorOptions(cfg *config.Config) (node.Options, error) {
	if !cfg.GetBool(config.KeyValidatorEnabled) {
		return node.Options{}, nil
	}
	path := cfg.GetString(config.KeyValidatorPrivateKeyPath)
	if path == "" {
		return node.Options{}, errors.New("validator.enabled is true but validator.private_key_path is empty")
	}
	key, err := wallet.Load(path)
	if err != nil {
		return node.Options{}, err
	}
	return node.Options{
		IsValidator: true,
		PrivateKey:  key.Priv,
		PublicKey:   key.Pub,
	}, nil
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
