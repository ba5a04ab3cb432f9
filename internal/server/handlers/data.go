package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/balloon-atlas/internal/aggregator"
	"github.com/vzahanych/balloon-atlas/internal/server/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const questionRequiredMessage = "Question is required"

// DataProvider is the pipeline surface the API serves.
type DataProvider interface {
	GetData(ctx context.Context) (*aggregator.DataResponse, error)
	GetBalloons(ctx context.Context) (*aggregator.BalloonResponse, error)
	AnswerQuestion(ctx context.Context, question string) (*aggregator.AnswerResponse, error)
	ClearCache(ctx context.Context)
}

type DataHandler struct {
	provider DataProvider
	logger   *zap.Logger
}

func NewDataHandler(provider DataProvider, logger *zap.Logger) *DataHandler {
	return &DataHandler{
		provider: provider,
		logger:   logger,
	}
}

func (h *DataHandler) requestLogger(c *gin.Context) *zap.Logger {
	return h.logger.With(zap.String("request_id", utils.GetRequestIDFromGinContext(c)))
}

func (h *DataHandler) GetData(c *gin.Context) {
	reqLogger := h.requestLogger(c)

	data, err := h.provider.GetData(utils.GetContextFromGinContext(c))
	if err != nil {
		h.internalError(c, reqLogger, err)
		return
	}

	utils.GetSpanFromGinContext(c).SetAttributes(attribute.Bool("cached", data.Cached))
	reqLogger.Info("Data request completed",
		zap.Bool("cached", data.Cached),
		zap.Int("samples", len(data.Weather.Data)))
	c.JSON(http.StatusOK, data)
}

func (h *DataHandler) GetBalloons(c *gin.Context) {
	reqLogger := h.requestLogger(c)

	data, err := h.provider.GetBalloons(utils.GetContextFromGinContext(c))
	if err != nil {
		h.internalError(c, reqLogger, err)
		return
	}

	utils.GetSpanFromGinContext(c).SetAttributes(attribute.Bool("cached", data.Cached))
	reqLogger.Info("Balloon request completed",
		zap.Bool("cached", data.Cached),
		zap.Int("total_balloons", data.TotalBalloons))
	c.JSON(http.StatusOK, data)
}

func (h *DataHandler) AskQuestion(c *gin.Context) {
	reqLogger := h.requestLogger(c)

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reqLogger.Warn("Invalid question body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   questionRequiredMessage,
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
		})
		return
	}
	if verrs := utils.ValidateStruct(req); len(verrs) > 0 {
		reqLogger.Warn("Question rejected", zap.String("reason", verrs[0].Message))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   questionRequiredMessage,
			Code:    "INVALID_PARAMS",
			Details: verrs[0].Message,
		})
		return
	}

	answer, err := h.provider.AnswerQuestion(utils.GetContextFromGinContext(c), req.Question)
	if errors.Is(err, aggregator.ErrEmptyQuestion) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: questionRequiredMessage, Code: "INVALID_PARAMS"})
		return
	}
	if err != nil {
		h.internalError(c, reqLogger, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

func (h *DataHandler) ClearCache(c *gin.Context) {
	h.provider.ClearCache(utils.GetContextFromGinContext(c))
	c.JSON(http.StatusOK, MessageResponse{Message: "Cache cleared"})
}

func (h *DataHandler) internalError(c *gin.Context, reqLogger *zap.Logger, err error) {
	reqLogger.Error("Request failed", zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   err.Error(),
		Code:    "PIPELINE_ERROR",
		Details: c.FullPath(),
	})
}
