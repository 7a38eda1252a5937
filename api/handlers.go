package api

import (
	"encoding/json"
	"net/http"

	"github.com/bockgov/governor/governance"
	"github.com/bockgov/governor/types"
	"github.com/labstack/echo/v4"
)

type proposeRequest struct {
	Description  string           `json:"description"`
	Instructions []InstructionDTO `json:"instructions"`
	AttachedBond string           `json:"attached_bond"`
}

func (s *Server) handlePropose(c echo.Context) error {
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	proposer, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req proposeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	list, err := toInstructionList(req.Instructions)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	bond, err := types.BalanceFromDecimal(req.AttachedBond)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	result, err := s.gov.Propose(proposer, req.Description, list, bond, types.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventProposalCreated, Data: map[string]interface{}{"id": result.Value, "proposer": proposer}})
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":      result.Value,
		"effects": effectsResponse(result.Effects),
	})
}

func (s *Server) handleListProposals(c echo.Context) error {
	all := s.gov.Proposals()
	out := make([]ProposalResponse, 0, len(all))
	for id, p := range all {
		out = append(out, proposalResponse(id, p))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetProposal(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	p, ok := s.gov.Proposal(id)
	if !ok {
		return c.JSON(http.StatusNotFound, APIError{Error: "proposal not found"})
	}
	return c.JSON(http.StatusOK, proposalResponse(id, p))
}

type counterProposeRequest struct {
	Description  string           `json:"description"`
	Instructions []InstructionDTO `json:"instructions"`
}

func (s *Server) handleCounterPropose(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	proposer, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req counterProposeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	list, err := toInstructionList(req.Instructions)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	result, err := s.gov.CounterPropose(id, proposer, req.Description, list)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventCounterProposed, Data: map[string]interface{}{"id": id, "version": result.Value}})
	return c.JSON(http.StatusOK, map[string]interface{}{"version": result.Value, "effects": effectsResponse(result.Effects)})
}

type versionRequest struct {
	Version uint8 `json:"version"`
}

func (s *Server) handleApprove(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req versionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	result, err := s.gov.Approve(id, req.Version, caller, types.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventVoteCast, Data: map[string]interface{}{"id": id, "choice": "approve", "version": req.Version, "voter": caller}})
	s.publishTerminal(id, result.Value)
	return c.JSON(http.StatusOK, map[string]interface{}{"status": statusResponse(result.Value), "effects": effectsResponse(result.Effects)})
}

func (s *Server) handleReject(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	result, err := s.gov.Reject(id, caller, types.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventVoteCast, Data: map[string]interface{}{"id": id, "choice": "reject", "voter": caller}})
	s.publishTerminal(id, result.Value)
	return c.JSON(http.StatusOK, map[string]interface{}{"status": statusResponse(result.Value), "effects": effectsResponse(result.Effects)})
}

// publishTerminal broadcasts the terminal-status event matching status,
// if status is in fact terminal (HandleVote's Approved/Rejected
// transitions, per spec.md §4.2 item 4); InProgress is a no-op.
func (s *Server) publishTerminal(id uint64, status governance.Status) {
	switch status.Tag {
	case governance.StatusApproved:
		s.bus.Publish(Event{Type: EventProposalApproved, Data: map[string]interface{}{"id": id, "version": status.Version}})
	case governance.StatusRejected:
		s.bus.Publish(Event{Type: EventProposalRejected, Data: map[string]interface{}{"id": id}})
	}
}

func (s *Server) handleVeto(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req versionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	result, err := s.gov.Veto(id, req.Version, caller)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"effects": effectsResponse(result.Effects)})
}

func (s *Server) handleWithdraw(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req versionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	if err := s.gov.Withdraw(id, req.Version, caller); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleRemove(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	if err := s.gov.Remove(id, caller); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleFinalize(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	result, err := s.gov.Finalize(id, caller, types.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventProposalFinalized, Data: map[string]interface{}{"id": id}})
	return c.JSON(http.StatusOK, map[string]interface{}{"effects": effectsResponse(result.Effects)})
}

type amendRequest struct {
	Version      uint8            `json:"version"`
	Description  string           `json:"description"`
	Instructions []InstructionDTO `json:"instructions"`
}

func (s *Server) handleAmend(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req amendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	list, err := toInstructionList(req.Instructions)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	if err := s.gov.Amend(id, req.Version, caller, req.Description, list); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	return c.NoContent(http.StatusOK)
}

type bountyClaimRequest struct {
	Deadline        types.Duration `json:"deadline"`
	AttachedDeposit string         `json:"attached_deposit"`
}

func (s *Server) handleBountyClaim(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req bountyClaimRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	deposit, err := types.BalanceFromDecimal(req.AttachedDeposit)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	if err := s.gov.BountyClaim(id, caller, req.Deadline, deposit, types.Now()); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventBountyClaimed, Data: map[string]interface{}{"bounty_id": id, "account": caller}})
	return c.NoContent(http.StatusOK)
}

type bountyDoneRequest struct {
	Who          string `json:"who,omitempty"`
	Description  string `json:"description"`
	AttachedBond string `json:"attached_bond"`
}

func (s *Server) handleBountyDone(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	var req bountyDoneRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	bond, err := types.BalanceFromDecimal(req.AttachedBond)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	var who *types.AccountID
	if req.Who != "" {
		w := types.AccountID(req.Who)
		who = &w
	}
	result, err := s.gov.BountyDone(id, who, caller, req.Description, bond, types.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	s.bus.Publish(Event{Type: EventBountyDone, Data: map[string]interface{}{"bounty_id": id, "proposal_id": result.Value}})
	return c.JSON(http.StatusOK, map[string]interface{}{"proposal_id": result.Value, "effects": effectsResponse(result.Effects)})
}

func (s *Server) handleBountyGiveup(c echo.Context) error {
	id, err := parseProposalID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	body, err := s.readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	caller, err := s.authenticate(c, body)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse(err))
	}
	result, err := s.gov.BountyGiveup(id, caller, types.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"refunded": result.Value, "effects": effectsResponse(result.Effects)})
}

func (s *Server) handleGetStaking(c echo.Context) error {
	id := s.gov.StakingID()
	if id == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"staking_id": nil})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"staking_id": string(*id)})
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	s.bus.register <- conn
	defer func() {
		s.bus.unregister <- conn
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}
