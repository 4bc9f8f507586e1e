package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"shopemx/internal/services"
)

type DocumentHandler struct {
	Profiles *services.ProfileService
}

func NewDocumentHandler(profiles *services.ProfileService) *DocumentHandler {
	return &DocumentHandler{Profiles: profiles}
}

// readUpload читает файл формы целиком; лимит проверяет сервис.
func readUpload(fh *multipart.FileHeader, limit int64) (*services.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// +1 байт, чтобы сервис увидел превышение
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &services.Upload{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}

// @Summary      Загрузка скана документа
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Изображение документа"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /upload-document [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Файл не найден", "field": "file"})
		return
	}
	up, err := readUpload(fh, h.Profiles.MaxDocumentSize)
	if err != nil {
		bindError(c, err)
		return
	}
	url, err := h.Profiles.UploadDocument(c.Request.Context(), userID, up)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fileName": path.Base(url), "filePath": url})
}

// @Summary      Ссылка на скан документа
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /get-document [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	url, err := h.Profiles.GetDocument(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if url == "" {
		c.JSON(http.StatusOK, gin.H{"filePath": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fileName": path.Base(url), "filePath": url})
}

// @Summary      Удаление скана документа
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /delete-document [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.Profiles.DeleteDocument(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Документ удален"})
}
