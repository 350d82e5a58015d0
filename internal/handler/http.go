package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/authutils"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/middleware"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/service"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// VotingHandler обрабатывает HTTP запросы движка голосования.
type VotingHandler struct {
	lifecycle service.ChapterLifecycle
	tally     service.VoteTally
	window    service.VotingWindow
	resolver  service.WinnerResolver
	logger    *zap.Logger
	verifier  *authutils.JWTVerifier
}

// NewVotingHandler создает новый VotingHandler.
func NewVotingHandler(
	lifecycle service.ChapterLifecycle,
	tally service.VoteTally,
	window service.VotingWindow,
	resolver service.WinnerResolver,
	logger *zap.Logger,
	jwtSecret string,
) *VotingHandler {
	verifier, err := authutils.NewJWTVerifier(jwtSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create JWT Verifier", zap.Error(err))
	}
	return &VotingHandler{
		lifecycle: lifecycle,
		tally:     tally,
		window:    window,
		resolver:  resolver,
		logger:    logger.Named("VotingHandler"),
		verifier:  verifier,
	}
}

// RegisterRoutes регистрирует маршруты движка.
func (h *VotingHandler) RegisterRoutes(e *echo.Echo) {
	authMiddleware := echo.WrapMiddleware(middleware.AuthMiddleware(h.verifier.VerifyToken, h.logger))

	// --- Истории и главы (API для авторов) ---
	storiesGroup := e.Group("/stories", authMiddleware)
	{
		storiesGroup.POST("", h.createStory)
		storiesGroup.GET("/:id", h.getStory)
		storiesGroup.GET("/:id/chapters", h.listChapters)
		storiesGroup.POST("/:id/chapters", h.createChapter)
		storiesGroup.GET("/:id/can-proceed", h.canProceed)
	}

	// --- Главы: публикация, голосование, итоги ---
	chaptersGroup := e.Group("/chapters")
	{
		chaptersGroup.POST("/:id/publish", h.publishChapter, authMiddleware)
		chaptersGroup.POST("/:id/votes", h.submitDirectVote, authMiddleware)
		chaptersGroup.POST("/:id/purchases", h.submitPurchaseVote, authMiddleware)
		chaptersGroup.POST("/:id/close", h.closeVoting, authMiddleware)
		chaptersGroup.GET("/:id", h.getChapter)
		chaptersGroup.GET("/:id/tally", h.getTally)
		chaptersGroup.GET("/:id/window", h.getWindow)
		chaptersGroup.GET("/:id/winner", h.getWinner)
		chaptersGroup.GET("/:id/winner/preview", h.previewWinner)
	}
}

// --- Вспомогательные функции --- //

// getUserIDFromContext извлекает userID, положенный auth middleware.
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userIDVal := c.Request().Context().Value(models.UserContextKey)
	if userIDVal == nil {
		return uuid.Nil, fmt.Errorf("user_id не найден в контексте")
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("неверный тип user_id в контексте: %T", userIDVal)
	}
	if userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("невалидный user_id в контексте")
	}
	return userID, nil
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	var partial *service.PartialRegistrationError
	var activeVoting *service.ActiveVotingError

	switch {
	case errors.As(err, &activeVoting):
		// Отказ несет блокирующую главу и остаток её окна.
		return c.JSON(http.StatusConflict, ActiveVotingRefusal{
			Message:           activeVoting.Error(),
			BlockingChapterID: activeVoting.Block.ChapterID,
			Remaining:         activeVoting.Block.Remaining,
		})
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Forbidden"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found"}
	case errors.As(err, &partial):
		// Частичная регистрация: внешняя зависимость упала на половине.
		statusCode = http.StatusBadGateway
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrAlreadyRegistered),
		errors.Is(err, models.ErrWinnerAlreadyResolved),
		errors.Is(err, models.ErrVotingStillActive),
		errors.Is(err, models.ErrChapterNotPublishable),
		errors.Is(err, models.ErrChapterPositionTaken),
		errors.Is(err, models.ErrStoryHasActiveVoting):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrVotingClosed):
		statusCode = http.StatusGone
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrTradeNotSettled):
		statusCode = http.StatusUnprocessableEntity
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrLedgerUnavailable):
		statusCode = http.StatusServiceUnavailable
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrChapterHasNoChoice),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, service.ErrExactlyTwoOptions),
		errors.Is(err, service.ErrEmptyOptionField),
		errors.Is(err, service.ErrDuplicateSymbols),
		errors.Is(err, service.ErrUnknownOption),
		errors.Is(err, service.ErrInvalidVoterID),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrInvalidOptionIndex):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

// --- Обработчики --- //

func (h *VotingHandler) createStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		h.logger.Warn("Cannot get userID from context", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
	}

	var req CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	story, err := h.lifecycle.CreateStory(c.Request().Context(), userID, req.Title, req.Description)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, story)
}

func (h *VotingHandler) getStory(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID"})
	}
	story, err := h.lifecycle.GetStory(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, story)
}

func (h *VotingHandler) listChapters(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID"})
	}
	chapters, err := h.lifecycle.ListStoryChapters(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, chapters)
}

func (h *VotingHandler) createChapter(c echo.Context) error {
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID"})
	}

	var req CreateChapterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	chapter, err := h.lifecycle.CreateChapter(c.Request().Context(), storyID, req.Title, req.ContentRef, req.HasChoicePoint)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, chapter)
}

func (h *VotingHandler) canProceed(c echo.Context) error {
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID"})
	}
	ok, block, err := h.lifecycle.CanAuthorProceed(c.Request().Context(), storyID)
	if err != nil {
		return handleServiceError(c, err)
	}
	resp := CanProceedResponse{CanProceed: ok}
	if block != nil {
		resp.BlockingChapterID = &block.ChapterID
		resp.Remaining = &block.Remaining
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *VotingHandler) getChapter(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}
	chapter, err := h.lifecycle.GetChapter(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, chapter)
}

func (h *VotingHandler) publishChapter(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}

	var req PublishChapterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	chapter, err := h.lifecycle.PublishWithOptions(c.Request().Context(), chapterID, req.PayoutAddress, req.Options)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, chapter)
}

func (h *VotingHandler) submitDirectVote(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
	}

	var req DirectVoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	if err := h.lifecycle.SubmitDirectVote(c.Request().Context(), chapterID, userID.String(), req.OptionIndex); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *VotingHandler) submitPurchaseVote(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}

	var req PurchaseVoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	conf := models.TradeConfirmation{TxHash: req.TxHash, Amount: req.Amount}
	if err := h.lifecycle.SubmitPurchaseVote(c.Request().Context(), chapterID, req.OptionSymbol, req.VoterAddress, conf); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *VotingHandler) getTally(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}
	snapshot, err := h.tally.GetTally(c.Request().Context(), chapterID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *VotingHandler) getWindow(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}

	ctx := c.Request().Context()
	active, err := h.window.IsActive(ctx, chapterID)
	if err != nil {
		return handleServiceError(c, err)
	}

	var resp WindowResponse
	resp.Active = active
	if active {
		remaining, err := h.window.TimeRemaining(ctx, chapterID)
		if err != nil {
			return handleServiceError(c, err)
		}
		resp.Remaining.Hours = remaining.Hours
		resp.Remaining.Minutes = remaining.Minutes
		resp.Remaining.Seconds = remaining.Seconds
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *VotingHandler) getWinner(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}
	winner, err := h.resolver.GetWinner(c.Request().Context(), chapterID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, winnerResponse(winner))
}

func (h *VotingHandler) previewWinner(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}
	leader, err := h.resolver.PreviewWinner(c.Request().Context(), chapterID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, winnerResponse(leader))
}

func (h *VotingHandler) closeVoting(c echo.Context) error {
	chapterID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid chapter ID"})
	}
	winner, err := h.lifecycle.CloseVotingAndResolve(c.Request().Context(), chapterID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, winnerResponse(winner))
}
