// Package export renders catalog data as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/safar/shop-api/internal/models"
)

const (
	ProductsSheet = "Products"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout    = "2006-01-02 15:04:05"
)

var productHeaders = []string{
	"ID", "Name", "Price", "ShortDescription", "Category", "Stock",
	"Width", "Height", "Type", "Status", "Keywords", "Images", "CreatedAt", "UpdatedAt",
}

// WriteProducts writes one header row followed by one row per product.
// categoryNames maps category ids to display names; unknown ids are written as-is.
func WriteProducts(w io.Writer, products []models.Product, categoryNames map[string]string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(ProductsSheet)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range productHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.Name)
		price, _ := p.Price.Float64()
		row.AddCell().SetFloat(price)
		row.AddCell().SetString(p.ShortDescription)

		category := p.CategoryID
		if name, ok := categoryNames[p.CategoryID]; ok {
			category = name
		}
		row.AddCell().SetString(category)

		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetFloat(p.Dimensions.Width)
		row.AddCell().SetFloat(p.Dimensions.Height)
		row.AddCell().SetInt(int(p.Type))
		row.AddCell().SetBool(p.Status)
		row.AddCell().SetString(strings.Join(p.Keywords, ","))
		row.AddCell().SetString(strings.Join(p.Images, ","))
		row.AddCell().SetString(p.CreatedAt.Format(timeLayout))
		row.AddCell().SetString(p.UpdatedAt.Format(timeLayout))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
