package api

import (
	"github.com/gofiber/fiber/v2"

	"docchat/store"
	"docchat/types"
)

type DebugHandler struct {
	docStore store.DocStorer
}

func NewDebugHandler(docStore store.DocStorer) *DebugHandler {
	return &DebugHandler{
		docStore: docStore,
	}
}

// HandleLookup reports whether the persisted page record for a docId exists
// and where it lives. Diagnostic only.
func (h *DebugHandler) HandleLookup(c *fiber.Ctx) error {
	docID := c.Params("docId")
	if docID == "" {
		return ErrBadRequest("Missing docId")
	}

	exists, path := h.docStore.Stat(c.Context(), docID)
	return c.JSON(types.DebugResponse{Exists: exists, Path: path})
}
