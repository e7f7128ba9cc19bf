package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ideafiles/internal/model"
	"ideafiles/internal/service"
)

// fileListResponse is the body of GET /ideas/{ideaId}/files.
type fileListResponse struct {
	Data  []model.FileRecord `json:"data"`
	Total int                `json:"total"`
}

// bearerToken returns the credential from "Authorization: Bearer <token>", or "" when absent.
func bearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func parseID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// AddFile uploads a file to an idea (multipart/form-data, field name: file).
//
// @Summary     Attach a file to an idea
// @Tags        files
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       ideaId path     int  true "Idea ID"
// @Param       file   formData file true "File content"
// @Success     201    {object} model.FileRecord
// @Failure     400    {object} errorPayload
// @Failure     403    {object} errorPayload
// @Failure     502    {object} errorPayload
// @Failure     500    {object} errorPayload
// @Router      /ideas/{ideaId}/files [post]
func AddFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ideaID, ok := parseID(c, "ideaId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_IDEA_ID", "invalid idea id")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		rec, err := svc.AddFile(c.UserContext(), ideaID, service.FileUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Content:     f,
		}, bearerToken(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// ListFiles lists the files attached to an idea.
//
// @Summary     List files of an idea
// @Tags        files
// @Produce     json
// @Param       ideaId path     int true "Idea ID"
// @Success     200    {object} fileListResponse
// @Failure     400    {object} errorPayload
// @Failure     500    {object} errorPayload
// @Router      /ideas/{ideaId}/files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ideaID, ok := parseID(c, "ideaId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_IDEA_ID", "invalid idea id")
		}

		files, err := svc.GetFileListByIdeaID(c.UserContext(), ideaID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fileListResponse{Data: files, Total: len(files)})
	}
}

// GetFile returns file metadata.
//
// @Summary     Get file metadata
// @Tags        files
// @Produce     json
// @Param       id  path     int true "File ID"
// @Success     200 {object} model.FileRecord
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /files/{id} [get]
func GetFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		rec, found, err := svc.GetByFileID(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !found {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
		}
		return c.JSON(rec)
	}
}

// DownloadFile streams the stored bytes of a file.
//
// @Summary     Download file content
// @Tags        files
// @Produce     octet-stream
// @Param       id  path int true "File ID"
// @Success     200 {file} binary
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     500 {object} errorPayload
// @Router      /files/{id}/download [get]
func DownloadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		rec, err := svc.GetFileWithBodyByID(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Attachment(rec.FileName)
		if rec.ContentType != "" {
			c.Set(fiber.HeaderContentType, rec.ContentType)
		}
		return c.Send(rec.Body)
	}
}

// RemoveFile deletes a file and its content.
//
// @Summary     Remove a file
// @Tags        files
// @Security    BearerAuth
// @Param       id  path int true "File ID"
// @Success     204
// @Failure     400 {object} errorPayload
// @Failure     403 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     502 {object} errorPayload
// @Failure     500 {object} errorPayload
// @Router      /files/{id} [delete]
func RemoveFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := svc.RemoveFile(c.UserContext(), id, bearerToken(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
