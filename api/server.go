// Package api is the HTTP/WebSocket transport for the governance core,
// adapted from the teacher's DAOServer (api/dao_server.go) and re-pointed
// at governor.Governor operations and governance-core events instead of
// blockchain transactions. The core itself stays transport-agnostic (see
// SPEC_FULL.md); this package is one possible host, not part of the
// governance semantics.
package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/bockgov/governor/crypto"
	"github.com/bockgov/governor/governor"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Server wraps a governor.Governor with echo HTTP routes and a
// websocket event bus, grounded on the teacher's DAOServer struct
// (*Server embedding, eventBus, upgrader, wsClients).
type Server struct {
	ListenAddr string
	gov        *governor.Governor
	bus        *EventBus
	upgrader   websocket.Upgrader
	logger     log.Logger
}

// NewServer builds a Server around an already-constructed Governor.
func NewServer(listenAddr string, gov *governor.Governor, logger log.Logger) *Server {
	bus := newEventBus()
	go bus.run()
	return &Server{
		ListenAddr: listenAddr,
		gov:        gov,
		bus:        bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Echo builds the routed echo.Echo instance without starting it, so
// callers (including tests) can drive it with httptest.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Access-Control-Allow-Origin", "*")
			c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Account-PublicKey, X-Signature")
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	})

	e.POST("/proposals", s.handlePropose)
	e.GET("/proposals", s.handleListProposals)
	e.GET("/proposals/:id", s.handleGetProposal)
	e.POST("/proposals/:id/counter", s.handleCounterPropose)
	e.POST("/proposals/:id/approve", s.handleApprove)
	e.POST("/proposals/:id/reject", s.handleReject)
	e.POST("/proposals/:id/veto", s.handleVeto)
	e.POST("/proposals/:id/withdraw", s.handleWithdraw)
	e.POST("/proposals/:id/remove", s.handleRemove)
	e.POST("/proposals/:id/finalize", s.handleFinalize)
	e.POST("/proposals/:id/amend", s.handleAmend)

	e.POST("/bounties/:id/claim", s.handleBountyClaim)
	e.POST("/bounties/:id/done", s.handleBountyDone)
	e.POST("/bounties/:id/giveup", s.handleBountyGiveup)

	e.GET("/staking", s.handleGetStaking)
	e.GET("/events", s.handleWebSocket)

	return e
}

// Start builds the routes and blocks serving HTTP on s.ListenAddr.
func (s *Server) Start() error {
	return s.Echo().Start(s.ListenAddr)
}

// authenticate recovers the calling account from the X-Account-PublicKey /
// X-Signature header pair, verifying the signature over sha256(body).
// Grounded on the teacher's privateKeyFromHex/publicKeyFromHex request
// authentication (api/dao_server.go), adapted from "submit your private
// key in the request body" (unsuitable even as sample code) to a detached
// signature the caller computes themselves, matching crypto.PublicKey's
// Verify contract.
func (s *Server) authenticate(c echo.Context, body []byte) (types.AccountID, error) {
	pubHex := c.Request().Header.Get("X-Account-PublicKey")
	sigHex := c.Request().Header.Get("X-Signature")
	if pubHex == "" || sigHex == "" {
		return "", errors.New("missing X-Account-PublicKey / X-Signature headers")
	}
	pub, err := crypto.PublicKeyFromHex(pubHex)
	if err != nil {
		return "", err
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil || len(sigBytes) != 64 {
		return "", errors.New("signature must be 64 hex-encoded bytes (r || s)")
	}
	sig := crypto.Signature{
		R: new(big.Int).SetBytes(sigBytes[:32]),
		S: new(big.Int).SetBytes(sigBytes[32:]),
	}
	digest := sha256.Sum256(body)
	if !pub.Verify(digest[:], sig) {
		s.logWarn("rejected request with invalid signature", "account", pub.Account())
		return "", errors.New("invalid signature")
	}
	return pub.Account(), nil
}

func (s *Server) readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(c.Request().Body)
}

func parseProposalID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func (s *Server) logWarn(msg string, keyvals ...interface{}) {
	level.Warn(s.logger).Log(append([]interface{}{"msg", msg}, keyvals...)...)
}
