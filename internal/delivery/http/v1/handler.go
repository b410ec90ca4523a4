package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/validation"
)

// bindJSON decodes the body into obj and pushes a 400 on failure.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.Error(bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperror.New(http.StatusBadRequest, validation.Summary(validation.FormatValidationErrors(verrs)), verrs)
	}
	if errors.Is(err, io.EOF) {
		return apperror.BadRequest("Request body is required")
	}
	return apperror.New(http.StatusBadRequest, "Invalid request body", err)
}

// uuidParam parses a path parameter, pushing a 400 when it is not a UUID.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.Error(apperror.BadRequest("Invalid " + name))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional query parameter.
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.Error(apperror.BadRequest("Invalid " + name))
		return nil, false
	}
	return &id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}

// readUpload reads the multipart "file" field up to maxBytes+1 so oversized
// files reach the size check instead of being truncated silently.
func readUpload(c *gin.Context, maxBytes int64) (domain.FileUpload, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.BadRequest("No file uploaded"))
		return domain.FileUpload{}, false
	}
	f, err := fh.Open()
	if err != nil {
		c.Error(apperror.BadRequest("Could not read uploaded file"))
		return domain.FileUpload{}, false
	}
	defer f.Close()

	limit := maxBytes
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		c.Error(apperror.BadRequest("Could not read uploaded file"))
		return domain.FileUpload{}, false
	}

	return domain.FileUpload{Filename: fh.Filename, Data: data, ClientIP: c.ClientIP()}, true
}
