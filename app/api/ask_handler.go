package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docchat/answer"
	"docchat/store"
	"docchat/types"
)

type AskHandler struct {
	orchestrator *answer.Orchestrator
	logger       *slog.Logger
}

func NewAskHandler(orchestrator *answer.Orchestrator) *AskHandler {
	return &AskHandler{
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}
}

// HandleAsk answers a question about an ingested document. Load failures are
// the only caller-visible errors here; answering-tier failures are absorbed
// inside the orchestrator.
func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest("Missing docId or question")
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	resp, err := h.orchestrator.Answer(c.Context(), params.DocID, params.Question)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound("Document")
		case errors.Is(err, store.ErrCorrupt):
			return NewErrorDetail(fiber.StatusBadRequest, "Invalid document record", err.Error())
		case errors.Is(err, answer.ErrEmptyDocument):
			return ErrBadRequest("No pages found in document")
		}
		h.logger.Error("ask failed", "docId", params.DocID, "error", err)
		return err
	}

	return c.JSON(resp)
}
