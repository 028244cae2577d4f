// Package api exposes the REST interface over gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/accounts"
	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/catalog"
	"github.com/safar/shop-api/internal/graph"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/orders"
	"github.com/safar/shop-api/internal/realtime"
)

const maxUploadMemory = 8 << 20

type Deps struct {
	Accounts    *accounts.Service
	Categories  *catalog.CategoryService
	Products    *catalog.ProductService
	Orders      *orders.Service
	Tokens      *auth.Issuer
	Hub         *realtime.Hub
	GraphQL     *graph.Schema
	Log         logrus.FieldLogger
	CORSOrigins []string
}

type Server struct {
	Deps
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	s := &Server{Deps: d}

	r := gin.New()
	r.MaxMultipartMemory = maxUploadMemory
	r.Use(gin.Recovery(), RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		respondJSON(c, http.StatusOK, nil, "ok")
	})

	authed := Authenticate(d.Tokens)
	member := RequireRole(models.RoleMember)
	admin := RequireRole(models.RoleAdmin)

	a := r.Group("/auth")
	{
		a.POST("/register", s.register)
		a.POST("/login", s.login)
	}

	cat := r.Group("/category", authed)
	{
		cat.GET("/", member, s.listCategories)
		cat.GET("/:id", member, s.getCategory)
		cat.POST("/create", admin, s.createCategory)
		cat.PUT("/update/:id", admin, s.updateCategory)
		cat.PATCH("/changeStatus/:id", admin, s.toggleCategory)
	}

	prod := r.Group("/product", authed)
	{
		prod.GET("/", member, s.listProducts)
		prod.GET("/all", member, s.allProducts)
		prod.GET("/search", member, s.searchProducts)
		prod.GET("/find", member, s.findProducts)
		prod.GET("/export", admin, s.exportProducts)
		prod.GET("/:id", member, s.getProduct)
		prod.POST("/create", admin, s.createProduct)
		prod.PUT("/:id", admin, s.updateProduct)
		prod.PATCH("/status/:id", admin, s.toggleProduct)
		prod.POST("/:id/images", admin, s.addProductImage)
	}

	usr := r.Group("/user", authed)
	{
		usr.GET("/", member, s.listUsers)
		usr.GET("/find-user/:id", member, s.getUser)
		usr.PUT("/update-user", member, s.updateUser)
		usr.PATCH("/change-status", admin, s.changeUserStatus)
		usr.DELETE("/:id", admin, s.deleteUser)
	}

	ord := r.Group("/order", authed)
	{
		ord.GET("/", admin, s.listOrders)
		ord.GET("/ws", admin, s.orderEvents)
		ord.GET("/user/:userId", member, s.listUserOrders)
		ord.GET("/:id", member, s.getOrder)
		ord.POST("/create", member, s.createOrder)
		ord.PUT("/:id", admin, s.updateOrder)
		ord.PATCH("/status/:id", admin, s.changeOrderStatus)
		ord.DELETE("/:id", admin, s.deleteOrder)
	}

	if d.GraphQL != nil {
		r.POST("/graphql", authed, member, s.graphql)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
