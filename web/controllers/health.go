package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"gorm.io/gorm"
)

type HealthController struct {
	DB *gorm.DB
}

// Health reports database reachability plus host load. Host stats are best effort.
func (hc *HealthController) Health(c *gin.Context) {
	ctx := c.Request.Context()

	sqlDB, err := hc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}

	info := gin.H{"status": "ok", "database": "up"}
	// interval 0 compares against the previous call, so this never blocks
	if usage, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(usage) > 0 {
		info["cpu_usage"] = usage[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info["memory_total"] = memInfo.Total
		info["memory_used"] = memInfo.Used
		info["memory_used_percent"] = memInfo.UsedPercent
	}
	c.JSON(http.StatusOK, info)
}

func (hc *HealthController) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", hc.Health)
}
