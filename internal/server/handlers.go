package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/pipeline"
	"github.com/planwright/planwright/internal/plan"
)

// health reports liveness and collaborator state.
func (s *Server) health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"service": "planwright",
	}
	if s.pipeline != nil {
		resp["checks"] = s.pipeline.Health()
	}
	c.JSON(http.StatusOK, resp)
}

// generatePlan runs the full pipeline for one site.
func (s *Server) generatePlan(c *gin.Context) {
	var req pipeline.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	result, err := s.pipeline.Generate(c.Request.Context(), req)
	if err != nil {
		s.log.Error("plan generation failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// validateRequest is the standalone validation payload: a full plan
// plus optional example URLs for cross-validation.
type validateRequest struct {
	Plan        *plan.ScrapingPlan `json:"plan"`
	ExampleURLs []string           `json:"exampleUrls,omitempty"`
}

// validatePlan runs the sandbox over an existing plan.
func (s *Server) validatePlan(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Plan == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan is required"})
		return
	}

	result, err := s.pipeline.Validate(c.Request.Context(), req.Plan, req.ExampleURLs)
	if err != nil {
		// Precondition violations still carry a complete result.
		if result != nil {
			c.JSON(http.StatusUnprocessableEntity, result)
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
