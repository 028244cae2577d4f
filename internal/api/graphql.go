package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/shop-api/internal/graph"
)

// graphql answers 200 with the result's errors array, the way GraphQL
// clients expect, once the body itself parses.
func (s *Server) graphql(c *gin.Context) {
	var req graph.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.graphql", err)
		return
	}

	res := s.GraphQL.Execute(c.Request.Context(), req)
	for _, e := range res.Errors {
		logFrom(c).WithField("path", e.Path).Debug(e.Message)
	}
	c.JSON(http.StatusOK, res)
}
