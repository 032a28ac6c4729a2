package server

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/obsfarm/farmd/common/log"
	"github.com/obsfarm/farmd/farm"
	"github.com/obsfarm/farmd/server/metric"
)

type Manager struct {
	e    *echo.Echo
	addr string
	farm *farm.Farm
	wssm *wsSessionManager
	log  log.Logger
}

func NewManager(addr string, f *farm.Farm, logger log.Logger) *Manager {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler

	if logger == nil {
		logger = log.GlobalLogger()
	}
	srv := &Manager{
		e:    e,
		addr: addr,
		farm: f,
		wssm: newWSSessionManager(logger),
		log:  logger.WithFields(log.Fields{log.FieldKeyModule: "server"}),
	}

	e.Use(middleware.Recover())

	g := e.Group("/api/v1")
	g.POST("/deposit", srv.handleDeposit)
	g.POST("/withdraw", srv.handleWithdraw)
	g.POST("/claim", srv.handleClaim)
	g.POST("/sweep", srv.handleSweep)
	g.GET("/account/:id", srv.handleGetAccount)
	g.GET("/stats", srv.handleGetStats)
	g.GET("/events", srv.wssm.RunEventSession)

	e.GET("/metrics", echo.WrapHandler(metric.PrometheusExporter()))

	// relay settlement payouts to metrics and event stream sessions
	f.AddListener(srv)
	return srv
}

// OnRewardPaid implements farm.EventListener.
func (srv *Manager) OnRewardPaid(account string, amount *big.Int) {
	if amount.IsInt64() {
		metric.RecordRewardPaid(amount.Int64())
	}
	srv.wssm.Broadcast(&RewardPaidEvent{
		Account: account,
		Amount:  amount.String(),
		PaidAt:  time.Now().Unix(),
	})
}

// Handler exposes the routed handler for serving over a custom listener.
func (srv *Manager) Handler() http.Handler {
	return srv.e
}

func (srv *Manager) Start() error {
	srv.log.Infof("starting the API server on %s", srv.addr)
	if err := srv.e.Start(srv.addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (srv *Manager) Stop() error {
	srv.farm.RemoveListener(srv)
	srv.wssm.StopAllSessions()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.e.Shutdown(ctx)
}
