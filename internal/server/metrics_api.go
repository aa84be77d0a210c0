package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

const tenantContextKey = "auth.tenant"

// requireTenant resolves the calling tenant from the X-API-Key header.
func (s *Server) requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing api key")
			return
		}
		tenant, err := s.tenants.FindByAPIKey(c.Request.Context(), s.db, apiKey)
		if errors.Is(err, tenantdomain.ErrTenantNotFound) {
			respondError(c, http.StatusUnauthorized, "unauthorized", "unknown api key")
			return
		}
		if err != nil {
			s.log.Error("tenant lookup failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "internal_error", "tenant lookup failed")
			return
		}
		if !tenant.IsActive {
			respondError(c, http.StatusForbidden, "forbidden", "tenant is inactive")
			return
		}
		c.Set(tenantContextKey, tenant)
		c.Next()
	}
}

func tenantFrom(c *gin.Context) *tenantdomain.Tenant {
	return c.MustGet(tenantContextKey).(*tenantdomain.Tenant)
}

type markDirtyRequest struct {
	Date     string `json:"date" binding:"required"`
	Platform string `json:"platform"`
}

func (s *Server) markDirty(c *gin.Context) {
	var req markDirtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	tenant := tenantFrom(c)
	s.engineAg.MarkDirty(tenant.ID, date, req.Platform)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

type backfillRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

func (s *Server) backfillMetrics(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	from, err := time.Parse(time.DateOnly, req.From)
	if err != nil {
		badRequest(c, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(time.DateOnly, req.To)
	if err != nil {
		badRequest(c, "to must be YYYY-MM-DD")
		return
	}
	tenant := tenantFrom(c)
	days, err := s.engineAg.Backfill(c.Request.Context(), tenant.ID, from, to)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "days": days})
}

// dateRange parses from/to query params, defaulting to the last 30 days.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			badRequest(c, "from must be YYYY-MM-DD")
			return from, to, false
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return from, to, false
		}
		to = parsed
	}
	return from, to, true
}

func (s *Server) listDailyMetrics(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	platform := c.DefaultQuery("platform", commercedomain.PlatformAll)
	tenant := tenantFrom(c)
	rows, err := s.rollups.ListDaily(c.Request.Context(), s.db, tenant.ID, from, to, platform)
	if err != nil {
		s.log.Error("list daily metrics failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": rows})
}

func (s *Server) listProductMetrics(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	tenant := tenantFrom(c)
	rows, err := s.rollups.ListProducts(c.Request.Context(), s.db, tenant.ID, from, to)
	if err != nil {
		s.log.Error("list product metrics failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": rows})
}

func (s *Server) aggregatorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pending": s.engineAg.Pending(),
		"parked":  s.engineAg.Parked(),
	})
}
