package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseID(c *fiber.Ctx, param, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(param))
	if err != nil {
		return primitive.NilObjectID, badRequest("Invalid " + what + " id")
	}
	return id, nil
}

// readUpload returns the named multipart file, rejecting it before reading when larger than maxMB.
func readUpload(c *fiber.Ctx, field string, maxMB int) (*multipart.FileHeader, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, badRequest("No file uploaded")
	}
	limit := int64(maxMB) << 20
	if fh.Size > limit {
		return nil, nil, badRequest(fmt.Sprintf("File too large (max %dMB)", maxMB))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, nil, badRequest(fmt.Sprintf("File too large (max %dMB)", maxMB))
	}
	return fh, data, nil
}
