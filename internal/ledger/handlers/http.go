// Package handlers exposes the engine's operations over a thin HTTP
// command adapter. The adapter carries no business rules: it resolves the
// calling actor from the X-Actor-ID header, forwards to the engine and
// translates sentinel errors to status codes.
package handlers

import (
	"context"
	"errors"
	"net/http"

	e "github.com/gartstein/companyledger/internal/ledger/errors"
	"github.com/gartstein/companyledger/internal/ledger/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// actorHeader identifies the calling actor. Identity is an opaque id
// supplied by the host; there is no authentication layer.
const actorHeader = "X-Actor-ID"

// LedgerEngine is the engine surface the adapter forwards to.
type LedgerEngine interface {
	CreateCompany(ctx context.Context, actorID, name string) (*models.Company, error)
	CompanyOf(ctx context.Context, actorID string) (*models.Company, error)
	WarehouseOf(ctx context.Context, actorID string) (*models.Warehouse, error)
	DeleteCompany(ctx context.Context, actorID string) error
	Invite(ctx context.Context, actorID, targetID string) error
	Kick(ctx context.Context, actorID, targetID string) error
	SetMemberRank(ctx context.Context, actorID, targetID, rankName string) error
	AddRank(ctx context.Context, actorID, rankName string) error
	RemoveRank(ctx context.Context, actorID, rankName string) error
	MoveRankUp(ctx context.Context, actorID, rankName string) error
	MoveRankDown(ctx context.Context, actorID, rankName string) error
	SetRankSalary(ctx context.Context, actorID, rankName string, salary decimal.Decimal) error
	Deposit(ctx context.Context, actorID string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, actorID string, amount decimal.Decimal) (decimal.Decimal, error)
}

type Handler struct {
	engine LedgerEngine
	logger *zap.Logger
}

func NewHandler(engine LedgerEngine, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger.Named("http_handler"),
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(router *gin.Engine) {
	router.Use(h.requireActor)

	router.POST("/companies", h.createCompany)
	router.GET("/company", h.getCompany)
	router.DELETE("/company", h.deleteCompany)

	router.POST("/company/members", h.invite)
	router.DELETE("/company/members/:id", h.kick)
	router.PUT("/company/members/:id/rank", h.setMemberRank)

	router.POST("/company/ranks", h.addRank)
	router.DELETE("/company/ranks/:name", h.removeRank)
	router.POST("/company/ranks/:name/move-up", h.moveRankUp)
	router.POST("/company/ranks/:name/move-down", h.moveRankDown)
	router.PUT("/company/ranks/:name/salary", h.setRankSalary)

	router.GET("/company/warehouse", h.getWarehouse)
	router.POST("/company/warehouse/deposits", h.deposit)
	router.POST("/company/warehouse/withdrawals", h.withdraw)
}

func (h *Handler) requireActor(c *gin.Context) {
	if c.GetHeader(actorHeader) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + actorHeader + " header"})
		return
	}
	c.Next()
}

func actorID(c *gin.Context) string {
	return c.GetHeader(actorHeader)
}

// statusOf maps the engine's sentinel errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, e.ErrNoCompany),
		errors.Is(err, e.ErrNotMember),
		errors.Is(err, e.ErrUnknownRank):
		return http.StatusNotFound
	case errors.Is(err, e.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, e.ErrAlreadyMember),
		errors.Is(err, e.ErrAlreadyOwnsCompany),
		errors.Is(err, e.ErrNameTaken),
		errors.Is(err, e.ErrDuplicateRank),
		errors.Is(err, e.ErrRankLimitReached),
		errors.Is(err, e.ErrSinkRejected):
		return http.StatusConflict
	case errors.Is(err, e.ErrNegativeAmount):
		return http.StatusBadRequest
	case errors.Is(err, e.ErrInsufficientBalance),
		errors.Is(err, e.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("operation failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) createCompany(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	company, err := h.engine.CreateCompany(c.Request.Context(), actorID(c), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *Handler) getCompany(c *gin.Context) {
	company, err := h.engine.CompanyOf(c.Request.Context(), actorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *Handler) deleteCompany(c *gin.Context) {
	if err := h.engine.DeleteCompany(c.Request.Context(), actorID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) invite(c *gin.Context) {
	var req struct {
		ActorID string `json:"actor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Invite(c.Request.Context(), actorID(c), req.ActorID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) kick(c *gin.Context) {
	if err := h.engine.Kick(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setMemberRank(c *gin.Context) {
	var req struct {
		Rank string `json:"rank"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetMemberRank(c.Request.Context(), actorID(c), c.Param("id"), req.Rank); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addRank(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.AddRank(c.Request.Context(), actorID(c), req.Name); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) removeRank(c *gin.Context) {
	if err := h.engine.RemoveRank(c.Request.Context(), actorID(c), c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) moveRankUp(c *gin.Context) {
	if err := h.engine.MoveRankUp(c.Request.Context(), actorID(c), c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) moveRankDown(c *gin.Context) {
	if err := h.engine.MoveRankDown(c.Request.Context(), actorID(c), c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setRankSalary(c *gin.Context) {
	var req struct {
		Salary decimal.Decimal `json:"salary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetRankSalary(c.Request.Context(), actorID(c), c.Param("name"), req.Salary); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getWarehouse(c *gin.Context) {
	warehouse, err := h.engine.WarehouseOf(c.Request.Context(), actorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	balance, err := h.engine.Deposit(c.Request.Context(), actorID(c), req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	balance, err := h.engine.Withdraw(c.Request.Context(), actorID(c), req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
