package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/middleware"
	"github.com/kestrel-retail/discovery-engine/internal/recommend"
)

type RecommendHandler struct {
	svc *recommend.Service
}

func NewRecommendHandler(svc *recommend.Service) *RecommendHandler {
	return &RecommendHandler{svc: svc}
}

func (h *RecommendHandler) ForSession(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if sessionID == "" {
		RespondErr(c, apperr.InvalidInput("no active session", nil))
		return
	}
	limit := parseLimit(c, 10)

	var exclude []int64
	for _, raw := range c.QueryArray("excludeProductIds") {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			exclude = append(exclude, id)
		}
	}

	recs, err := h.svc.ForSession(c.Request.Context(), sessionID, limit, exclude)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"results": recs})
}

func (h *RecommendHandler) Similar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondErr(c, apperr.InvalidInput("invalid product id", err))
		return
	}
	limit := parseLimit(c, 10)

	recs, err := h.svc.Similar(c.Request.Context(), id, limit)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"results": recs})
}

func (h *RecommendHandler) Trending(c *gin.Context) {
	limit := parseLimit(c, 10)
	recs, err := h.svc.Trending(c.Request.Context(), limit)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"results": recs})
}
