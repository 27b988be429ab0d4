// Package rpc implements the optional JSON-RPC surface of spec.md §6:
// get_balance, get_nonce, submit_transaction, get_transaction_status,
// get_latest_block_info, served over osamingo/jsonrpc the way
// tinychain's rpc/jsonrpc package serves its methods (spec.md §9 Open
// Question 5: wallet<->node RPC is accommodated but not mandated by the
// core, so a node run with rpc.enabled unset never starts this
// server).
package rpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/osamingo/jsonrpc"
	"github.com/pkg/errors"

	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/node"
	"github.com/tinynode/tinynode/internal/rpc/api"
	"github.com/tinynode/tinynode/internal/rpc/handlers"
)

var log = logging.GetLogger("rpc")

// shutdownTimeout bounds how long Stop waits for in-flight requests to
// finish before forcing the listener closed.
const shutdownTimeout = 5 * time.Second

// Handler is the common shape every method handler in internal/rpc/handlers
// implements, matching tinychain's rpc/jsonrpc.Handler.
type Handler interface {
	jsonrpc.Handler
	Name() string
	Params() interface{}
	Result() interface{}
}

// registerHandlers lists every method this node serves, grounded on
// tinychain's rpc/jsonrpc.InitHandler.
func registerHandlers(a *api.API) []Handler {
	return []Handler{
		handlers.GetBalanceHandler{API: a},
		handlers.GetNonceHandler{API: a},
		handlers.SubmitTransactionHandler{API: a},
		handlers.GetTransactionStatusHandler{API: a},
		handlers.GetLatestBlockInfoHandler{API: a},
	}
}

// Server is the JSON-RPC HTTP server over n, started and stopped
// alongside the orchestrator.
type Server struct {
	addr    string
	httpSrv *http.Server
}

// New constructs a Server bound to addr ("host:port"), serving the
// methods of n.
func New(addr string, n *node.Node) *Server {
	a := api.New(n)
	mr := jsonrpc.NewMethodRepository()
	for _, h := range registerHandlers(a) {
		mr.RegisterMethod(h.Name(), h, h.Params(), h.Result())
	}

	mux := http.NewServeMux()
	mux.Handle("/", mr)
	mux.HandleFunc("/debug", mr.ServeDebug)

	return &Server{
		addr:    addr,
		httpSrv: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start begins serving in the background; it returns once the listener
// is open or an error occurs binding it.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "rpc: failed to bind listener")
	}
	log.Infof("rpc server listening on %s", s.addr)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("rpc server error: %s", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		log.Errorf("rpc server shutdown error: %s", err)
	}
}
