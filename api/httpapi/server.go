// Package httpapi is the HTTP surface of the matcher: read queries served
// from live engine state, and write operations appended to the command log
// for the engine to consume in order.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"mako/domain/address"
	"mako/domain/dex"
	"mako/domain/rates"
	"mako/infra/storage"
	"mako/service"
)

// CommandLog appends commands for the engine. Satisfied by the kafka
// producer.
type CommandLog interface {
	Send(ctx context.Context, key, value []byte) error
}

// Server wires the gin router to the engine and its collaborators.
type Server struct {
	engine   *service.Orchestrator
	registry *address.Registry
	rates    *rates.Cache
	store    *storage.Store
	commands CommandLog

	http *http.Server
}

// New builds the server listening on addr.
func New(addr string, engine *service.Orchestrator, registry *address.Registry,
	rc *rates.Cache, store *storage.Store, commands CommandLog) *Server {

	s := &Server{
		engine:   engine,
		registry: registry,
		rates:    rc,
		store:    store,
		commands: commands,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), timing())

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/markets", s.markets)
	router.GET("/snapshots/offsets", s.snapshotOffsets)
	router.GET("/orderbook/:amountAsset/:priceAsset", s.orderBook)
	router.GET("/orderbook/:amountAsset/:priceAsset/status", s.marketStatus)
	router.POST("/orderbook", s.placeOrder)
	router.DELETE("/orderbook/:amountAsset/:priceAsset/:orderId", s.cancelOrder)

	router.GET("/balance/tradable/:address", s.tradableBalance)
	router.GET("/balance/reserved/:address/:asset", s.reservedBalance)
	router.GET("/orders/:address", s.orders)
	router.GET("/orders/:address/:orderId", s.orderStatus)
	router.DELETE("/orders/:address", s.cancelAll)

	router.GET("/rates", s.allRates)
	router.PUT("/rates/:asset", s.upsertRate)
	router.DELETE("/rates/:asset", s.deleteRate)

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	log.Infof("http api listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// -------------------- Market reads --------------------

func (s *Server) markets(c *gin.Context) {
	markets, err := s.engine.Markets(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, markets)
}

// snapshotOffsets reports the durable recovery-point offset per pair, the
// position a restart would replay the log from.
func (s *Server) snapshotOffsets(c *gin.Context) {
	offsets, err := s.engine.SnapshotOffsets(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, offsets)
}

func (s *Server) orderBook(c *gin.Context) {
	pair, ok := pairParam(c)
	if !ok {
		return
	}
	view, err := s.engine.OrderBook(c.Request.Context(), pair)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) marketStatus(c *gin.Context) {
	pair, ok := pairParam(c)
	if !ok {
		return
	}
	st, err := s.engine.MarketStatus(c.Request.Context(), pair)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// -------------------- Order writes --------------------

// placeOrder appends a place command to the log. The response acknowledges
// acceptance into the log, not a matching outcome; clients follow the
// event stream or poll the order's status.
func (s *Server) placeOrder(c *gin.Context) {
	var order dex.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := &service.Command{
		Kind:      service.KindPlace,
		Timestamp: time.Now().UnixMilli(),
		Order:     &order,
	}
	if err := s.append(c.Request.Context(), order.Pair.Key(), cmd); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"orderId": order.ID()})
}

func (s *Server) cancelOrder(c *gin.Context) {
	pair, ok := pairParam(c)
	if !ok {
		return
	}
	id, err := dex.ParseOrderID(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := &service.Command{
		Kind:      service.KindCancel,
		Timestamp: time.Now().UnixMilli(),
		OrderID:   &id,
		Pair:      &pair,
	}
	if err := s.append(c.Request.Context(), pair.Key(), cmd); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"orderId": id})
}

func (s *Server) cancelAll(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	cmd := &service.Command{
		Kind:      service.KindCancelAll,
		Timestamp: time.Now().UnixMilli(),
		Sender:    &addr,
	}
	key := "all"
	if p, ok := pairQuery(c); ok {
		cmd.Pair = p
		key = p.Key()
	} else if c.IsAborted() {
		return
	}
	if err := s.append(c.Request.Context(), key, cmd); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) append(ctx context.Context, key string, cmd *service.Command) error {
	data, err := service.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return s.commands.Send(ctx, []byte(key), data)
}

// -------------------- Address reads --------------------

func (s *Server) tradableBalance(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	var assets []dex.Asset
	for _, raw := range strings.Split(c.Query("assets"), ",") {
		if raw == "" {
			continue
		}
		asset, err := dex.ParseAsset(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		assets = append(assets, asset)
	}
	if len(assets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assets query parameter required"})
		return
	}
	balances, err := s.registry.Actor(addr).TradableBalance(c.Request.Context(), assets)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

func (s *Server) reservedBalance(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	asset, err := dex.ParseAsset(c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reserved, err := s.registry.Actor(addr).Reserved(c.Request.Context(), asset)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset, "reserved": reserved})
}

func (s *Server) orders(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	var pair *dex.AssetPair
	if p, ok := pairQuery(c); ok {
		pair = p
	} else if c.IsAborted() {
		return
	}
	activeOnly := c.Query("activeOnly") == "true"
	infos, err := s.registry.Actor(addr).Orders(c.Request.Context(), pair, activeOnly)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

// orderStatus answers from the live actor first, then falls back to the
// durable order store for orders that finished before the last restart.
func (s *Server) orderStatus(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	id, err := dex.ParseOrderID(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := s.registry.Actor(addr).OrderStatus(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	if st == dex.StatusNotFound {
		if stored := s.storedStatus(id); stored != nil {
			st = *stored
		}
	}
	c.JSON(http.StatusOK, gin.H{"orderId": id, "status": st})
}

func (s *Server) storedStatus(id dex.OrderID) *dex.OrderStatus {
	data, ok, err := s.store.GetOrder(id)
	if err != nil || !ok {
		return nil
	}
	var lo dex.LimitOrder
	if err := json.Unmarshal(data, &lo); err != nil {
		log.Warnf("stored order %s is unreadable: %v", id, err)
		return nil
	}
	return &lo.Status
}

// -------------------- Rates --------------------

func (s *Server) allRates(c *gin.Context) {
	out := make(map[string]decimal.Decimal)
	for asset, rate := range s.rates.All() {
		out[asset.String()] = rate
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) upsertRate(c *gin.Context) {
	asset, err := dex.ParseAsset(c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var body struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prev, existed, err := s.rates.Upsert(asset, body.Rate)
	if err != nil {
		abortWith(c, err)
		return
	}
	if err := s.store.PutRate(asset, body.Rate.String()); err != nil {
		abortWith(c, err)
		return
	}
	if existed {
		c.JSON(http.StatusOK, gin.H{"asset": asset, "rate": body.Rate, "previous": prev})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"asset": asset, "rate": body.Rate})
}

func (s *Server) deleteRate(c *gin.Context) {
	asset, err := dex.ParseAsset(c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prev, err := s.rates.Delete(asset)
	if err != nil {
		abortWith(c, err)
		return
	}
	if err := s.store.DeleteRate(asset); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset, "previous": prev})
}

// -------------------- Helpers --------------------

func addressParam(c *gin.Context) (dex.PublicKey, bool) {
	var pk dex.PublicKey
	if err := pk.UnmarshalText([]byte(c.Param("address"))); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pk, false
	}
	return pk, true
}

func pairParam(c *gin.Context) (dex.AssetPair, bool) {
	amount, err := dex.ParseAsset(c.Param("amountAsset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return dex.AssetPair{}, false
	}
	price, err := dex.ParseAsset(c.Param("priceAsset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return dex.AssetPair{}, false
	}
	return dex.AssetPair{AmountAsset: amount, PriceAsset: price}, true
}

// pairQuery parses optional amountAsset/priceAsset query parameters. ok is
// false when absent; a malformed value aborts the request.
func pairQuery(c *gin.Context) (*dex.AssetPair, bool) {
	rawAmount, rawPrice := c.Query("amountAsset"), c.Query("priceAsset")
	if rawAmount == "" && rawPrice == "" {
		return nil, false
	}
	amount, err := dex.ParseAsset(rawAmount)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	price, err := dex.ParseAsset(rawPrice)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &dex.AssetPair{AmountAsset: amount, PriceAsset: price}, true
}

// abortWith maps domain errors onto HTTP statuses.
func abortWith(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dex.ErrValidation), errors.Is(err, dex.ErrRateInvalid),
		errors.Is(err, dex.ErrInsufficientBalance):
		status = http.StatusBadRequest
	case errors.Is(err, dex.ErrOrderNotFound), errors.Is(err, dex.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dex.ErrRateImmutable):
		status = http.StatusForbidden
	case errors.Is(err, dex.ErrOracleUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		log.Errorf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
