// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all assistant routes with the router.
//
// Description:
//
//	Registers the /v1/assistant/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Endpoints:
//
//	POST /v1/assistant/chat - Run one chat turn, streaming the answer
//	GET  /v1/assistant/health - Health check
//	GET  /v1/assistant/ready - Readiness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, rateLimit RateLimitConfig) {
	assistant := rg.Group("/assistant")
	{
		assistant.POST("/chat", RateLimitMiddleware(rateLimit), handlers.HandleChat)
		assistant.GET("/health", handlers.HandleHealth)
		assistant.GET("/ready", handlers.HandleReady)
	}
}
