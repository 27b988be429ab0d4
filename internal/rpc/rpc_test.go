package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/config"
	"github.com/tinynode/tinynode/internal/consensus"
	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/mempool"
	"github.com/tinynode/tinynode/internal/node"
	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/types"
)

type rpcEnv struct {
	node *node.Node
	addr string
	sender types.Address
	priv   crypto.PrivateKey
}

func startTestServer(t *testing.T) *rpcEnv {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)

	store, err := storage.Open(t.TempDir(), true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := consensus.New([]types.Address{sender})
	pool := mempool.New(mempool.Config{MaxTransactions: 100})

	identity, err := p2p.NewIdentity()
	require.NoError(t, err)
	peer, err := p2p.New(identity, "127.0.0.1:0", nil, 8, false)
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("genesis_file: genesis.json\n"), 0644))
	cfg := config.New(cfgPath)

	n := node.New(cfg, store, pool, engine, peer, node.Options{
		IsValidator: true,
		PrivateKey:  priv,
		PublicKey:   pub,
		ReorgDepth:  64,
	})

	genesis := types.NewBlock(&types.Header{ParentHash: types.ZeroHash, BlockNumber: 0, Timestamp: 1000}, nil)
	require.NoError(t, n.Bootstrap(genesis, map[types.Address]*types.Account{sender: {Balance: 1000}}))

	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	srv := New(addr, n)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	waitForServer(t, addr)

	return &rpcEnv{node: n, addr: addr, sender: sender, priv: priv}
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, addr string) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := http.Get("http://" + addr + "/debug")
		if err == nil {
			conn.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("rpc server at %s never became reachable", addr)
}

func call(t *testing.T, addr, method string, params interface{}) map[string]interface{} {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	require.NoError(t, err)

	resp, err := http.Post("http://"+addr+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGetBalanceOverHTTP(t *testing.T) {
	env := startTestServer(t)

	out := call(t, env.addr, "get_balance", map[string]string{"address": env.sender.String()})
	require.Nil(t, out["error"])
	result := out["result"].(map[string]interface{})
	require.Equal(t, float64(1000), result["balance"])
}

func TestGetNonceOverHTTP(t *testing.T) {
	env := startTestServer(t)

	out := call(t, env.addr, "get_nonce", map[string]string{"address": env.sender.String()})
	require.Nil(t, out["error"])
	result := out["result"].(map[string]interface{})
	require.Equal(t, float64(0), result["nonce"])
}

func TestGetLatestBlockInfoOverHTTP(t *testing.T) {
	env := startTestServer(t)

	out := call(t, env.addr, "get_latest_block_info", map[string]string{})
	require.Nil(t, out["error"])
	result := out["result"].(map[string]interface{})
	require.Equal(t, float64(0), result["height"])
}

func TestSubmitTransactionThenStatusOverHTTP(t *testing.T) {
	env := startTestServer(t)

	_, recipientPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	recipient := types.BytesToAddress(recipientPub)

	tx := types.NewTransaction(env.sender, recipient, 10, 0)
	tx.Sign(env.priv)
	out := call(t, env.addr, "submit_transaction", map[string]interface{}{
		"sender":    env.sender.String(),
		"recipient": recipient.String(),
		"amount":    10,
		"nonce":     0,
		"signature": hex.EncodeToString(tx.Signature[:]),
	})
	require.Nil(t, out["error"])
	submitted := out["result"].(map[string]interface{})
	require.Equal(t, tx.ID().String(), submitted["tx_hash"])

	out = call(t, env.addr, "get_transaction_status", map[string]string{"hash": tx.ID().String()})
	require.Nil(t, out["error"])
	pending := out["result"].(map[string]interface{})
	require.Equal(t, "pending", pending["status"])

	out = call(t, env.addr, "get_transaction_status", map[string]string{"hash": types.Hash{}.String()})
	require.Nil(t, out["error"])
	result := out["result"].(map[string]interface{})
	require.Equal(t, "unknown", result["status"])
}

func TestGetBalanceRejectsMalformedAddress(t *testing.T) {
	env := startTestServer(t)

	out := call(t, env.addr, "get_balance", map[string]string{"address": "not-hex"})
	require.NotNil(t, out["error"])
}
