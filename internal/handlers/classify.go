package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/vitia/backend/internal/classify"
)

// ClassifyHandler suggests varieties for an uploaded photo.
type ClassifyHandler struct {
	classifier *classify.Classifier
}

func NewClassifyHandler(classifier *classify.Classifier) *ClassifyHandler {
	return &ClassifyHandler{classifier: classifier}
}

func (h *ClassifyHandler) Predict(c *gin.Context) {
	if h.classifier == nil {
		respondError(c, http.StatusServiceUnavailable, "El modelo de identificación no está disponible")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Debe enviar una imagen en el campo file")
		return
	}
	if !classify.IsImageContentType(file.Header.Get("Content-Type")) {
		respondError(c, http.StatusBadRequest, "File must be an image.")
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "No se pudo leer la imagen")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "No se pudo leer la imagen")
		return
	}
	if len(data) > maxUploadBytes {
		respondError(c, http.StatusBadRequest, "La imagen es demasiado grande")
		return
	}

	predictions, err := h.classifier.Classify(c.Request.Context(), data)
	if err != nil {
		if errors.Is(err, classify.ErrInvalidImage) {
			respondError(c, http.StatusBadRequest, "Invalid image: "+err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al identificar la imagen")
		return
	}

	c.JSON(http.StatusOK, gin.H{"predicciones": predictions})
}
