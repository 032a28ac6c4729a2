package server

import (
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obsfarm/farmd/common/errors"
	"github.com/obsfarm/farmd/server/metric"
)

type OperationRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type SweepRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type AccountResponse struct {
	Account        string `json:"account"`
	Deposited      string `json:"deposited"`
	StakingSince   int64  `json:"staking_since"`
	LastSettledAt  int64  `json:"last_settled_at"`
	TotalEarned    string `json:"total_earned"`
	PendingRewards string `json:"pending_rewards"`
}

type StatsResponse struct {
	HolderCount     int    `json:"holder_count"`
	TotalClaimed    string `json:"total_claimed_rewards"`
	RewardBudget    string `json:"reward_budget"`
	RemainingBudget string `json:"remaining_budget"`
}

type RewardPaidEvent struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	PaidAt  int64  `json:"paid_at"`
}

type ResultResponse struct {
	Result string `json:"result"`
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.IllegalArgumentError.Errorf("InvalidAmountFormat(amount=%q)", s)
	}
	return v, nil
}

func (srv *Manager) handleDeposit(c echo.Context) error {
	var req OperationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	err = srv.farm.Deposit(req.Account, amount)
	metric.RecordOperation("deposit", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ResultResponse{Result: "ok"})
}

func (srv *Manager) handleWithdraw(c echo.Context) error {
	var req OperationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	err = srv.farm.Withdraw(req.Account, amount)
	metric.RecordOperation("withdraw", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ResultResponse{Result: "ok"})
}

func (srv *Manager) handleClaim(c echo.Context) error {
	var req OperationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := srv.farm.Claim(req.Account)
	metric.RecordOperation("claim", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ResultResponse{Result: "ok"})
}

func (srv *Manager) handleSweep(c echo.Context) error {
	var req SweepRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	err = srv.farm.Sweep(req.Caller, req.Asset, req.To, amount)
	metric.RecordOperation("sweep", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ResultResponse{Result: "ok"})
}

func (srv *Manager) handleGetAccount(c echo.Context) error {
	id := c.Param("id")
	ac, err := srv.farm.GetAccount(id)
	if err != nil {
		return err
	}
	if ac == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no such account")
	}
	pending, err := srv.farm.PendingRewards(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &AccountResponse{
		Account:        id,
		Deposited:      ac.Deposited.String(),
		StakingSince:   ac.StakingSince,
		LastSettledAt:  ac.LastSettledAt,
		TotalEarned:    ac.TotalEarned.String(),
		PendingRewards: pending.String(),
	})
}

func (srv *Manager) handleGetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, &StatsResponse{
		HolderCount:     srv.farm.HolderCount(),
		TotalClaimed:    srv.farm.TotalClaimedRewards().String(),
		RewardBudget:    srv.farm.RewardBudget().String(),
		RemainingBudget: srv.farm.RemainingBudget().String(),
	})
}
