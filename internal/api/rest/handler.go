package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/executor"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// Mint creates a new ledger entry
	// POST /api/v1/tokens
	Mint(c *gin.Context)

	// GetToken retrieves a single token by its id
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// ListTokens retrieves a page of token ids
	// GET /api/v1/tokens?offset=<offset>&limit=<limit>
	ListTokens(c *gin.Context)

	// GetMetadata retrieves the token's raw metadata document
	// GET /api/v1/tokens/:id/metadata
	GetMetadata(c *gin.Context)

	// GetPayout computes the sale payout for the token's current state
	// GET /api/v1/tokens/:id/payout?sale_amount=<amount>&max_recipients=<n>
	GetPayout(c *gin.Context)

	// GetJournal retrieves a page of the token's durable operation history
	// GET /api/v1/tokens/:id/journal?offset=<offset>&limit=<limit>
	GetJournal(c *gin.Context)

	// Approve grants a delegate an approval on the token
	// POST /api/v1/tokens/:id/approvals
	Approve(c *gin.Context)

	// Revoke removes one delegate's approval
	// DELETE /api/v1/tokens/:id/approvals/:delegate?caller_id=<caller>
	Revoke(c *gin.Context)

	// RevokeAll removes every approval of the token
	// DELETE /api/v1/tokens/:id/approvals?caller_id=<caller>
	RevokeAll(c *gin.Context)

	// Transfer moves token ownership
	// POST /api/v1/tokens/:id/transfer
	Transfer(c *gin.Context)

	// TransferPayout moves token ownership and computes the sale payout
	// POST /api/v1/tokens/:id/transfer-payout
	TransferPayout(c *gin.Context)

	// Burn removes the token from the ledger
	// POST /api/v1/tokens/:id/burn
	Burn(c *gin.Context)

	// ListOwnerTokens retrieves a page of an owner's token ids
	// GET /api/v1/owners/:id/tokens?offset=<offset>&limit=<limit>
	ListOwnerTokens(c *gin.Context)

	// GetOwnerSupply retrieves the number of tokens held by an owner
	// GET /api/v1/owners/:id/supply
	GetOwnerSupply(c *gin.Context)

	// GetSupply retrieves the total number of tokens
	// GET /api/v1/supply
	GetSupply(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor            *executor.Executor
	maxPayoutRecipients int
}

// NewHandler creates a new REST API handler over the executor
func NewHandler(exec *executor.Executor, maxPayoutRecipients int) Handler {
	return &handler{
		executor:            exec,
		maxPayoutRecipients: maxPayoutRecipients,
	}
}

// Mint creates a new ledger entry
func (h *handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	attached, err := domain.ParseAmount(req.Attached)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.executor.Mint(c.Request.Context(), executor.MintRequest{
		TokenID:  domain.TokenID(req.TokenID),
		OwnerID:  domain.AccountID(req.OwnerID),
		Royalty:  toRoyaltyMap(req.Royalty),
		Metadata: req.Metadata,
		Attached: attached,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mintResponse{
		TokenID:   req.TokenID,
		BytesUsed: result.BytesUsed,
		Refund:    result.Refund.Dec(),
	})
}

// GetToken retrieves a single token by its id
func (h *handler) GetToken(c *gin.Context) {
	tokenID := c.Param("id")
	if tokenID == "" {
		respondBadRequest(c, "Token id is required")
		return
	}

	token, err := h.executor.Token(domain.TokenID(tokenID))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTokenResponse(domain.TokenID(tokenID), token))
}

// ListTokens retrieves a page of token ids
func (h *handler) ListTokens(c *gin.Context) {
	var page paginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	page.normalize()

	tokens := h.executor.Tokens(page.Offset, page.Limit)
	c.JSON(http.StatusOK, tokenListResponse{
		Tokens: toTokenIDs(tokens),
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}

// GetMetadata retrieves the token's raw metadata document
func (h *handler) GetMetadata(c *gin.Context) {
	tokenID := c.Param("id")

	metadata, err := h.executor.Metadata(domain.TokenID(tokenID))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if metadata == nil {
		c.JSON(http.StatusOK, gin.H{"metadata": nil})
		return
	}
	c.Data(http.StatusOK, "application/json", metadata)
}

// GetPayout computes the sale payout for the token's current state
func (h *handler) GetPayout(c *gin.Context) {
	tokenID := c.Param("id")

	var query payoutQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	saleAmount, err := domain.ParseAmount(query.SaleAmount)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	maxRecipients := h.maxPayoutRecipients
	if query.MaxRecipients != nil {
		maxRecipients = *query.MaxRecipients
	}

	payout, err := h.executor.Payout(domain.TokenID(tokenID), saleAmount, maxRecipients)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payoutResponse{Payout: toPayoutResponse(payout)})
}

// GetJournal retrieves a page of the token's durable operation history
func (h *handler) GetJournal(c *gin.Context) {
	tokenID := c.Param("id")

	var page paginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	page.normalize()

	entries, err := h.executor.Journal(c.Request.Context(), domain.TokenID(tokenID), page.Offset, page.Limit)
	if err != nil {
		respondInternalError(c, err, "Failed to read journal", zap.String("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, toJournalResponse(entries, page.Offset, page.Limit))
}

// Approve grants a delegate an approval on the token
func (h *handler) Approve(c *gin.Context) {
	tokenID := c.Param("id")

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	attached, err := domain.ParseAmount(req.Attached)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.executor.Approve(c.Request.Context(), executor.ApproveRequest{
		TokenID:    domain.TokenID(tokenID),
		DelegateID: domain.AccountID(req.DelegateID),
		CallerID:   domain.AccountID(req.CallerID),
		Msg:        req.Msg,
		Attached:   attached,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, approveResponse{
		ApprovalID: result.ApprovalID,
		Refund:     result.Refund.Dec(),
	})
}

// Revoke removes one delegate's approval
func (h *handler) Revoke(c *gin.Context) {
	tokenID := c.Param("id")
	delegateID := c.Param("delegate")
	callerID := c.Query("caller_id")
	if callerID == "" {
		respondBadRequest(c, "caller_id is required")
		return
	}

	result, err := h.executor.Revoke(c.Request.Context(), executor.RevokeRequest{
		TokenID:    domain.TokenID(tokenID),
		DelegateID: domain.AccountID(delegateID),
		CallerID:   domain.AccountID(callerID),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, revokeResponse{Released: result.Released.Dec()})
}

// RevokeAll removes every approval of the token
func (h *handler) RevokeAll(c *gin.Context) {
	tokenID := c.Param("id")
	callerID := c.Query("caller_id")
	if callerID == "" {
		respondBadRequest(c, "caller_id is required")
		return
	}

	result, err := h.executor.RevokeAll(c.Request.Context(), domain.TokenID(tokenID), domain.AccountID(callerID))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, revokeResponse{Released: result.Released.Dec()})
}

// Transfer moves token ownership
func (h *handler) Transfer(c *gin.Context) {
	tokenID := c.Param("id")

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.executor.Transfer(c.Request.Context(), executor.TransferRequest{
		TokenID:    domain.TokenID(tokenID),
		SenderID:   domain.AccountID(req.SenderID),
		ReceiverID: domain.AccountID(req.ReceiverID),
		ApprovalID: req.ApprovalID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, transferResponse{
		PreviousOwnerID: string(result.PreviousOwnerID),
		Released:        result.Released.Dec(),
	})
}

// TransferPayout moves token ownership and computes the sale payout
func (h *handler) TransferPayout(c *gin.Context) {
	tokenID := c.Param("id")

	var req transferPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	saleAmount, err := domain.ParseAmount(req.SaleAmount)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	maxRecipients := h.maxPayoutRecipients
	if req.MaxRecipients != nil {
		maxRecipients = *req.MaxRecipients
	}

	result, err := h.executor.TransferPayout(c.Request.Context(), executor.TransferPayoutRequest{
		TransferRequest: executor.TransferRequest{
			TokenID:    domain.TokenID(tokenID),
			SenderID:   domain.AccountID(req.SenderID),
			ReceiverID: domain.AccountID(req.ReceiverID),
			ApprovalID: req.ApprovalID,
		},
		SaleAmount:    saleAmount,
		MaxRecipients: maxRecipients,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, transferPayoutResponse{
		transferResponse: transferResponse{
			PreviousOwnerID: string(result.PreviousOwnerID),
			Released:        result.Released.Dec(),
		},
		Payout: toPayoutResponse(result.Payout),
	})
}

// Burn removes the token from the ledger
func (h *handler) Burn(c *gin.Context) {
	tokenID := c.Param("id")

	var req burnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.executor.Burn(c.Request.Context(), domain.TokenID(tokenID), domain.AccountID(req.CallerID))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, burnResponse{Released: result.Released.Dec()})
}

// ListOwnerTokens retrieves a page of an owner's token ids
func (h *handler) ListOwnerTokens(c *gin.Context) {
	ownerID := c.Param("id")

	var page paginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	page.normalize()

	tokens := h.executor.TokensForOwner(domain.AccountID(ownerID), page.Offset, page.Limit)
	c.JSON(http.StatusOK, tokenListResponse{
		Tokens: toTokenIDs(tokens),
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}

// GetOwnerSupply retrieves the number of tokens held by an owner
func (h *handler) GetOwnerSupply(c *gin.Context) {
	ownerID := c.Param("id")
	c.JSON(http.StatusOK, supplyResponse{Supply: h.executor.SupplyForOwner(domain.AccountID(ownerID))})
}

// GetSupply retrieves the total number of tokens
func (h *handler) GetSupply(c *gin.Context) {
	c.JSON(http.StatusOK, supplyResponse{Supply: h.executor.Supply()})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
