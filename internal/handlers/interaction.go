package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/middleware"
	"github.com/kestrel-retail/discovery-engine/internal/session"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type InteractionHandler struct {
	svc *session.Service
}

func NewInteractionHandler(svc *session.Service) *InteractionHandler {
	return &InteractionHandler{svc: svc}
}

type recordInteractionBody struct {
	ProductID string  `json:"productId" binding:"required"`
	Kind      string  `json:"kind" binding:"required"`
	Query     *string `json:"query"`
	Position  *int    `json:"position"`
}

func (h *InteractionHandler) Record(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if sessionID == "" {
		id, err := session.NewSessionID()
		if err != nil {
			RespondErr(c, err)
			return
		}
		sessionID = id
	}

	var body recordInteractionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondErr(c, invalidInput(err))
		return
	}
	productID, err := strconv.ParseInt(body.ProductID, 10, 64)
	if err != nil {
		RespondErr(c, apperr.InvalidInput("invalid product id", err))
		return
	}

	err = h.svc.Record(c.Request.Context(), session.RecordInput{
		SessionID: sessionID,
		ProductID: productID,
		Kind:      types.InteractionKind(body.Kind),
		Query:     body.Query,
		Position:  body.Position,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	middleware.SetSessionCookie(c, sessionID)
	RespondOK(c, gin.H{"ok": true})
}
