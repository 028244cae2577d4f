package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/orders"
)

type changeOrderStatusRequest struct {
	Status *int `json:"status" binding:"required"`
}

func (s *Server) listOrders(c *gin.Context) {
	list, err := s.Orders.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, list, "Orders retrieved successfully")
}

func (s *Server) listUserOrders(c *gin.Context) {
	userID := c.Param("userId")
	claims, _ := claimsFrom(c)
	if !claims.CanActFor(userID) {
		respondError(c, apperr.Forbidden("api.listUserOrders", "You can only view your own orders"))
		return
	}

	list, err := s.Orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, list, "Orders retrieved successfully")
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	claims, _ := claimsFrom(c)
	if !claims.CanActFor(order.UserID) {
		respondError(c, apperr.Forbidden("api.getOrder", "You can only view your own orders"))
		return
	}
	respondJSON(c, http.StatusOK, order, "Order found")
}

func (s *Server) createOrder(c *gin.Context) {
	var req orders.CreateOrderCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.createOrder", err)
		return
	}

	claims, _ := claimsFrom(c)
	if req.UserID == "" {
		req.UserID = claims.UserID
	}
	if !claims.CanActFor(req.UserID) {
		respondError(c, apperr.Forbidden("api.createOrder", "You can only place orders for yourself"))
		return
	}

	order, err := s.Orders.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, order, "Order created successfully")
}

func (s *Server) updateOrder(c *gin.Context) {
	var req orders.UpdateOrderCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.updateOrder", err)
		return
	}
	req.ID = c.Param("id")

	order, err := s.Orders.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, order, "Order updated successfully")
}

func (s *Server) changeOrderStatus(c *gin.Context) {
	var req changeOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.changeOrderStatus", err)
		return
	}

	order, err := s.Orders.ChangeStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(*req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, order, "Order status updated successfully")
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, err := s.Orders.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"id": id}, "Order deleted successfully")
}

func (s *Server) orderEvents(c *gin.Context) {
	if s.Hub == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, envelope{Code: codeFail, Mess: "realtime events are not enabled"})
		return
	}
	s.Hub.ServeWS(c.Writer, c.Request)
}
