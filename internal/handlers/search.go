package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kestrel-retail/discovery-engine/internal/middleware"
	"github.com/kestrel-retail/discovery-engine/internal/search"
)

type SearchHandler struct {
	svc *search.Service
}

func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type searchRequestBody struct {
	Query       string   `json:"query" binding:"required"`
	Category    string   `json:"category"`
	MinPrice    *float64 `json:"minPrice"`
	MaxPrice    *float64 `json:"maxPrice"`
	InStockOnly bool     `json:"inStockOnly"`
	MinScore    *float64 `json:"minScore"`
	Limit       int      `json:"limit"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var body searchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondErr(c, invalidInput(err))
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), search.Request{
		SessionID: middleware.SessionIDFromContext(c),
		Query:     body.Query,
		Limit:     body.Limit,
		Filters: search.Filters{
			Category:    body.Category,
			MinPrice:    body.MinPrice,
			MaxPrice:    body.MaxPrice,
			InStockOnly: body.InStockOnly,
			MinScore:    body.MinScore,
		},
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	middleware.SetSessionCookie(c, resp.SessionID)
	RespondOK(c, resp)
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
