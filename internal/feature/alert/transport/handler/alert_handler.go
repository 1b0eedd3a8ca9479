package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/transport/http/dto"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// AlertUsecase はハンドラーが利用するアラートのユースケースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AlertUsecase interface {
	ListAlerts(ctx context.Context, ownerID uint) ([]entity.Alert, error)
	ListLogs(ctx context.Context, ownerID, alertID uint, limit int) ([]entity.AlertLog, error)
	SetActive(ctx context.Context, ownerID, alertID uint, active bool) (*entity.Alert, error)
	LatestSnapshot(ctx context.Context, symbol, interval string) (*indentity.Snapshot, error)
}

// AlertHandler はアラート参照APIのHTTPリクエストを処理します。
type AlertHandler struct {
	uc  AlertUsecase
	now func() time.Time
}

// NewAlertHandler は新しい AlertHandler を作成します。
func NewAlertHandler(uc AlertUsecase) *AlertHandler {
	return &AlertHandler{uc: uc, now: time.Now}
}

// List は認証ユーザーのアラート一覧を返します。
func (h *AlertHandler) List(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	alerts, err := h.uc.ListAlerts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	now := h.now()
	out := make([]dto.AlertItem, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertItem(a, now))
	}
	c.JSON(http.StatusOK, out)
}

// Logs はアラートの発火履歴を新しい順に返します。?limit= で件数を指定できます。
func (h *AlertHandler) Logs(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	alertID, ok := parseID(c)
	if !ok {
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := h.uc.ListLogs(c.Request.Context(), userID, alertID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.AlertLogItem, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.AlertLogItem{
			ID:           l.ID,
			EventID:      l.EventID,
			FiredAt:      l.FiredAt,
			SnapshotRef:  l.SnapshotRef,
			Snapshot:     json.RawMessage(l.Snapshot),
			Outcome:      string(l.Outcome),
			OutcomeError: l.OutcomeError,
			DeliveredAt:  l.DeliveredAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// SetActive はアラートを有効化または無効化します。
func (h *AlertHandler) SetActive(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	alertID, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.uc.SetActive(c.Request.Context(), userID, alertID, *req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertItem(*a, h.now()))
}

// Snapshot は銘柄の最新スナップショットを返します。?interval= の既定は 1day です。
func (h *AlertHandler) Snapshot(c *gin.Context) {
	code := c.Param("code")
	snap, err := h.uc.LatestSnapshot(c.Request.Context(), code, c.Query("interval"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not available"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return 0, false
	}
	return uint(id), true
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func toAlertItem(a entity.Alert, now time.Time) dto.AlertItem {
	return dto.AlertItem{
		ID:              a.ID,
		Name:            a.Name,
		Description:     a.Description,
		SymbolCode:      a.SymbolCode,
		Interval:        a.SeriesInterval(),
		Condition:       json.RawMessage(a.Condition),
		Active:          a.Active,
		State:           string(a.StateAt(now)),
		CooldownSeconds: int64(a.Cooldown / time.Second),
		TriggerCount:    a.TriggerCount,
		LastTriggeredAt: a.LastTriggeredAt,
		CooldownEndsAt:  a.CooldownEndsAt(),
		ConditionError:  a.ConditionError,
	}
}
