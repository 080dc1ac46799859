package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/pkg/utils"
	"github.com/boundary-pipeline/internal/usecase"
)

// MapsHandler отдает сгенерированные файлы карт
type MapsHandler struct {
	mapsUC *usecase.MapsUseCase
	logger *zap.Logger
}

func NewMapsHandler(mapsUC *usecase.MapsUseCase, logger *zap.Logger) *MapsHandler {
	return &MapsHandler{
		mapsUC: mapsUC,
		logger: logger,
	}
}

// GetMapFile godoc
// @Summary Файл карты
// @Description Отдает сгенерированный GeoJSON или TopoJSON файл: {geojson|topojson}/<level>/<layer>/<group>_qN.json
// @Tags Maps
// @Produce json
// @Param path path string true "Путь файла, например topojson/uf/municipio/29_q1.json"
// @Success 200 {object} object "FeatureCollection или Topology"
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/maps/{path} [get]
func (h *MapsHandler) GetMapFile(c *fiber.Ctx) error {
	rel, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		rel = c.Params("*")
	}

	data, err := h.mapsUC.GetFile(c.UserContext(), rel)
	if err != nil {
		h.logger.Debug("Map file not served", zap.String("path", rel), zap.Error(err))
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(data)
}
