package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/catalog"
	"github.com/safar/shop-api/internal/export"
	"github.com/safar/shop-api/internal/store"
)

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.Categories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, cats, "Categories retrieved successfully")
}

func (s *Server) getCategory(c *gin.Context) {
	cat, err := s.Categories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, cat, "Category found")
}

func (s *Server) createCategory(c *gin.Context) {
	var req catalog.CreateCategoryCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.createCategory", err)
		return
	}

	cat, err := s.Categories.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, cat, "Category created successfully")
}

func (s *Server) updateCategory(c *gin.Context) {
	var req catalog.UpdateCategoryCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.updateCategory", err)
		return
	}

	cat, err := s.Categories.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, cat, "Category updated successfully")
}

func (s *Server) toggleCategory(c *gin.Context) {
	cat, err := s.Categories.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, cat, "Category status updated successfully")
}

func (s *Server) listProducts(c *gin.Context) {
	page, err := s.Products.ListPage(c.Request.Context(), pageFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page.Products, page.Total, page.Pagination, "Products retrieved successfully")
}

func (s *Server) allProducts(c *gin.Context) {
	products, err := s.Products.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, products, "Products retrieved successfully")
}

func (s *Server) searchProducts(c *gin.Context) {
	page, err := s.Products.Search(c.Request.Context(), c.Query("search"), pageFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page.Products, page.Total, page.Pagination, "Products found")
}

func (s *Server) findProducts(c *gin.Context) {
	const op = "api.findProducts"

	minPrice, err := decimalQuery(c, "minPrice")
	if err != nil {
		respondError(c, apperr.Validation(op, "minPrice must be a number"))
		return
	}
	maxPrice, err := decimalQuery(c, "maxPrice")
	if err != nil {
		respondError(c, apperr.Validation(op, "maxPrice must be a number"))
		return
	}

	page, err := s.Products.Find(c.Request.Context(), catalog.FindProductsQuery{
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		CategoryID: c.Query("category"),
		SortByDate: c.Query("sortByDate"),
		Page:       pageFrom(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page.Products, page.Total, page.Pagination, "Products found")
}

func (s *Server) getProduct(c *gin.Context) {
	p, err := s.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, p, "Product found")
}

func (s *Server) createProduct(c *gin.Context) {
	var req catalog.CreateProductCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.createProduct", err)
		return
	}

	p, err := s.Products.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, p, "Product created successfully")
}

func (s *Server) updateProduct(c *gin.Context) {
	var req catalog.UpdateProductCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "api.updateProduct", err)
		return
	}

	p, err := s.Products.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, p, "Product updated successfully")
}

func (s *Server) toggleProduct(c *gin.Context) {
	p, err := s.Products.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, p, "Product status updated successfully")
}

func (s *Server) addProductImage(c *gin.Context) {
	const op = "api.addProductImage"

	if !s.Products.MediaEnabled() {
		c.AbortWithStatusJSON(http.StatusNotImplemented, envelope{Code: codeFail, Mess: catalog.ErrMediaDisabled.Error()})
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperr.Validation(op, "image file is required"))
		return
	}
	file, err := fh.Open()
	if err != nil {
		respondError(c, apperr.Internal(op, err))
		return
	}
	defer file.Close()

	p, err := s.Products.AddImage(c.Request.Context(), c.Param("id"), file, fh.Filename)
	if errors.Is(err, catalog.ErrMediaDisabled) {
		c.AbortWithStatusJSON(http.StatusNotImplemented, envelope{Code: codeFail, Mess: err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, p, "Image uploaded successfully")
}

func (s *Server) exportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.Products.Export(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="products.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func pageFrom(c *gin.Context) store.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return store.NewPage(page, limit)
}

func decimalQuery(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
