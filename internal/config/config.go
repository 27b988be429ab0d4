// Package config wraps viper the way tinychain's common.Config does:
// a thin, mutex-guarded facade with typed getters over a single
// node configuration document (spec.md §6).
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Recognized configuration keys, matching spec.md §6 verbatim.
const (
	KeyGenesisFile = "genesis_file"

	KeyNetworkListenPort     = "network.listen_port"
	KeyNetworkListenAddr     = "network.listen_addr"
	KeyNetworkBootstrapPeers = "network.bootstrap_peers"
	KeyNetworkMaxPeers       = "network.max_peers"
	KeyNetworkIdentityPath   = "network.identity_path"
	KeyNetworkLocalDiscovery = "network.local_discovery"

	KeyStorageDBPath          = "storage.db_path"
	KeyStorageCreateIfMissing = "storage.create_if_missing"

	KeyConsensusBlockInterval    = "consensus.block_interval"
	KeyConsensusMaxTxsPerBlock   = "consensus.max_txs_per_block"
	KeyConsensusMaxClockSkewSecs = "consensus.max_clock_skew_seconds"
	KeyConsensusReorgDepth       = "consensus.reorg_depth"

	KeyValidatorEnabled        = "validator.enabled"
	KeyValidatorPrivateKeyPath = "validator.private_key_path"

	KeyMempoolMaxTransactions = "mempool.max_transactions"

	KeyRPCEnabled    = "rpc.enabled"
	KeyRPCListenAddr = "rpc.listen_addr"
)

// Config is a mutex-guarded facade over a *viper.Viper, mirroring
// tinychain/common.Config.
type Config struct {
	v  *viper.Viper
	mu sync.RWMutex
}

// New reads a configuration document from path. It panics on read failure,
// matching tinychain's common.NewConfig: a malformed config file is a
// startup-fatal condition (spec.md §7's "Configuration error" is one of the
// exit-code-2 causes surfaced by cmd/tinynode).
func New(path string) *Config {
	vp := viper.New()
	vp.SetConfigFile(path)
	setDefaults(vp)
	if err := vp.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("failed to read config from %q: %s", path, err))
	}
	return &Config{v: vp}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault(KeyNetworkListenPort, 30333)
	vp.SetDefault(KeyNetworkListenAddr, "0.0.0.0")
	vp.SetDefault(KeyNetworkMaxPeers, 32)
	vp.SetDefault(KeyNetworkLocalDiscovery, true)
	vp.SetDefault(KeyStorageCreateIfMissing, true)
	vp.SetDefault(KeyConsensusBlockInterval, 3)
	vp.SetDefault(KeyConsensusMaxTxsPerBlock, 500)
	vp.SetDefault(KeyConsensusMaxClockSkewSecs, 30)
	vp.SetDefault(KeyConsensusReorgDepth, 64)
	vp.SetDefault(KeyMempoolMaxTransactions, 1000)
	vp.SetDefault(KeyValidatorEnabled, false)
	vp.SetDefault(KeyRPCEnabled, false)
	vp.SetDefault(KeyRPCListenAddr, "127.0.0.1:8645")
}

func (c *Config) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.Get(key)
}

func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt(key)
}

func (c *Config) GetInt64(key string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt64(key)
}

func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetDuration(key)
}

func (c *Config) GetStringSlice(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetStringSlice(key)
}

// BlockInterval returns consensus.block_interval as a time.Duration,
// interpreting a bare integer as seconds per spec.md §6.
func (c *Config) BlockInterval() time.Duration {
	if d := c.GetDuration(KeyConsensusBlockInterval); d > time.Second {
		return d
	}
	secs := c.GetInt64(KeyConsensusBlockInterval)
	if secs <= 0 {
		secs = 3
	}
	return time.Duration(secs) * time.Second
}

// MaxClockSkew returns consensus.max_clock_skew_seconds as a duration,
// defaulting to the spec.md §4.6 default of 30s.
func (c *Config) MaxClockSkew() time.Duration {
	secs := c.GetInt64(KeyConsensusMaxClockSkewSecs)
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}
