package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/walletlens/wallet-analyzer/internal/analyzer"
)

// WalletAnalyzer runs one wallet-analysis request end to end.
type WalletAnalyzer interface {
	AnalyzeWallet(ctx context.Context, wallet string) (*analyzer.Analysis, error)
}

// ResultSummarizer optionally narrates an analysis result.
type ResultSummarizer interface {
	Summarize(ctx context.Context, a *analyzer.Analysis) (string, error)
}

// Handler holds the HTTP endpoints.
type Handler struct {
	analyzer   WalletAnalyzer
	summarizer ResultSummarizer // nil when the feature is off
	log        *zap.Logger
}

// NewHandler creates the endpoint set. summarizer may be nil.
func NewHandler(a WalletAnalyzer, summarizer ResultSummarizer, log *zap.Logger) *Handler {
	return &Handler{analyzer: a, summarizer: summarizer, log: log}
}

type analyzeRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

type analyzeResponse struct {
	*analyzer.Analysis
	Summary string `json:"summary,omitempty"`
}

// Root greets API explorers.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Wallet Analyzer API"})
}

// Health is the liveness endpoint.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "wallet-analyzer"})
}

// Analyze handles POST /analyze.
func (h *Handler) Analyze(c *gin.Context) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		requestsTotal.WithLabelValues("/analyze", c.Request.Method, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues("/analyze").Observe(time.Since(start).Seconds())
	}()

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status = http.StatusBadRequest
		c.JSON(status, gin.H{"error": "wallet_address is required"})
		return
	}
	if err := validateBase58(req.WalletAddress); err != nil {
		status = http.StatusBadRequest
		c.JSON(status, gin.H{"error": fmt.Sprintf("invalid wallet address: %v", err)})
		return
	}

	result, err := h.analyzer.AnalyzeWallet(c.Request.Context(), req.WalletAddress)
	if err != nil {
		h.log.Error("wallet analysis failed", zap.String("wallet", req.WalletAddress), zap.Error(err))
		status = http.StatusBadGateway
		c.JSON(status, gin.H{"error": "failed to fetch wallet transactions"})
		return
	}

	resp := analyzeResponse{Analysis: result}
	if h.summarizer != nil {
		if text, err := h.summarizer.Summarize(c.Request.Context(), result); err == nil {
			resp.Summary = text
		} else {
			h.log.Warn("summarizer failed", zap.Error(err))
		}
	}

	c.JSON(status, resp)
}

// validateBase58 checks that s is a plausible base58 wallet address.
func validateBase58(s string) error {
	if len(s) < 32 || len(s) > 44 {
		return fmt.Errorf("address length %d out of range [32, 44]", len(s))
	}
	const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			return fmt.Errorf("invalid character %q in base58 address", c)
		}
	}
	return nil
}
