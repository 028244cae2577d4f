package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/shop-api/internal/accounts"
	"github.com/safar/shop-api/internal/apperr"
)

type changeUserStatusRequest struct {
	ID     string `json:"id" binding:"required"`
	Status *bool  `json:"status" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req accounts.RegisterCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.register", err)
		return
	}

	u, err := s.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, u, "User registered successfully")
}

func (s *Server) login(c *gin.Context) {
	var req accounts.LoginCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.login", err)
		return
	}

	session, err := s.Accounts.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, session, "Login successful")
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.Accounts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, users, "Users retrieved successfully")
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.Accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, u, "User found")
}

func (s *Server) updateUser(c *gin.Context) {
	var req accounts.UpdateCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.updateUser", err)
		return
	}

	claims, _ := claimsFrom(c)
	u, err := s.Accounts.Update(c.Request.Context(), accounts.Actor{ID: claims.UserID, Role: claims.Role}, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, u, "User updated successfully")
}

func (s *Server) changeUserStatus(c *gin.Context) {
	var req changeUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.changeUserStatus", err)
		return
	}

	u, err := s.Accounts.ChangeStatus(c.Request.Context(), req.ID, *req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, u, "User status updated successfully")
}

func (s *Server) deleteUser(c *gin.Context) {
	claims, _ := claimsFrom(c)
	if claims.UserID == c.Param("id") {
		respondError(c, apperr.Validation("api.deleteUser", "You cannot delete your own account"))
		return
	}

	u, err := s.Accounts.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, u, "User deleted successfully")
}
