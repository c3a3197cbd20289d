package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medstaff-api/internal/model"
)

// PageBody renders a list page as {key: items, total, limit, offset}
func PageBody[T any](key string, page *model.Page[T]) gin.H {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return gin.H{
		key:      items,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}
}
