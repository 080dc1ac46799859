package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/pkg/utils"
	"github.com/boundary-pipeline/internal/usecase"
)

// DiagnosticsHandler обрабатывает запросы диагностики и сводки запусков
type DiagnosticsHandler struct {
	diagUC *usecase.DiagnosticsUseCase
	logger *zap.Logger
}

func NewDiagnosticsHandler(diagUC *usecase.DiagnosticsUseCase, logger *zap.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		diagUC: diagUC,
		logger: logger,
	}
}

// List godoc
// @Summary Диагностика конвейера
// @Description Без run_id возвращает последние записи из стрима, с run_id - архив запуска из PostgreSQL
// @Tags Diagnostics
// @Produce json
// @Param run_id query string false "ID запуска (UUID)"
// @Param limit query int false "Максимальное количество записей" default(100)
// @Success 200 {object} utils.SuccessResponse{data=[]domain.Diagnostic}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/diagnostics [get]
func (h *DiagnosticsHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()
	limit := c.QueryInt("limit", 100)
	runID := c.Query("run_id")

	var (
		items interface{}
		total int
	)
	if runID == "" {
		recent, err := h.diagUC.Recent(ctx, limit)
		if err != nil {
			return utils.SendError(c, err)
		}
		items, total = recent, len(recent)
	} else {
		archived, err := h.diagUC.ListByRun(ctx, runID, limit)
		if err != nil {
			return utils.SendError(c, err)
		}
		items, total = archived, len(archived)
	}

	return utils.SendSuccess(c, items, &utils.Meta{Total: total, Limit: limit})
}

// LatestRun godoc
// @Summary Сводка последнего запуска
// @Description Итоги пулов partition и simplify и счетчики диагностики последнего запуска
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=domain.RunSummary}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/runs/latest [get]
func (h *DiagnosticsHandler) LatestRun(c *fiber.Ctx) error {
	summary, err := h.diagUC.LatestRun(c.UserContext())
	if err != nil {
		h.logger.Debug("Latest run not available", zap.Error(err))
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, summary, nil)
}
