package api

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docchat/extract"
	"docchat/store"
	"docchat/types"
)

type UploadHandler struct {
	docStore store.DocStorer
	logger   *slog.Logger
}

func NewUploadHandler(docStore store.DocStorer) *UploadHandler {
	return &UploadHandler{
		docStore: docStore,
		logger:   slog.Default(),
	}
}

// HandleUpload ingests a PDF: extract per-page text, persist the page record
// and the raw bytes under a fresh docId. Nothing is persisted when extraction
// fails.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest("No file provided")
	}

	if !isPDF(fileHeader.Filename, fileHeader.Header.Get("Content-Type")) {
		return ErrBadRequest("Only PDF files are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	pages, err := extract.Pages(data)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidPDF) {
			h.logger.Error("rejected unparseable upload", "filename", fileHeader.Filename, "error", err)
			return NewErrorDetail(fiber.StatusInternalServerError, "Failed to upload/parse PDF", err.Error())
		}
		return err
	}

	doc := types.Document{
		DocID:     uuid.NewString(),
		Filename:  fileHeader.Filename,
		PageCount: len(pages),
		Pages:     pages,
		CreatedAt: time.Now(),
	}

	if err := h.docStore.Save(c.Context(), doc, data); err != nil {
		h.logger.Error("failed to persist document", "docId", doc.DocID, "error", err)
		return err
	}

	h.logger.Info("document ingested", "docId", doc.DocID, "filename", doc.Filename, "pages", doc.PageCount)

	return c.JSON(types.UploadResponse{
		DocID:     doc.DocID,
		Filename:  doc.Filename,
		PageCount: doc.PageCount,
	})
}

func isPDF(filename, contentType string) bool {
	return contentType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
