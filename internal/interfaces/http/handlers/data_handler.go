package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/statusservice/internal/application/mockdata"
	"github.com/turtacn/statusservice/pkg/constants"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
)

// DataHandler serves generated users, products and orders.
type DataHandler struct {
	gen *mockdata.Generator
}

func NewDataHandler(gen *mockdata.Generator) *DataHandler {
	return &DataHandler{gen: gen}
}

func (h *DataHandler) Users(c *gin.Context) {
	n, ok := countParam(c, "count", constants.DefaultGenerateCount, 1)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n, "data": h.gen.Users(n)})
}

func (h *DataHandler) Products(c *gin.Context) {
	n, ok := countParam(c, "count", constants.DefaultGenerateCount, 1)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n, "data": h.gen.Products(n)})
}

// Orders handles GET /api/orders?count=N. With ?id=N it returns that single order instead.
func (h *DataHandler) Orders(c *gin.Context) {
	if raw, ok := c.GetQuery("id"); ok {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			sendError(c, svcerrors.ErrInvalidRequest("id must be a positive integer"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": h.gen.Order(id)})
		return
	}
	n, ok := countParam(c, "count", constants.DefaultGenerateCount, 1)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n, "data": h.gen.Orders(n)})
}

// Random handles GET /api/random?type=user|product|order&count=N.
func (h *DataHandler) Random(c *gin.Context) {
	kind := c.DefaultQuery("type", "user")
	n, ok := countParam(c, "count", 1, 1)
	if !ok {
		return
	}

	var data interface{}
	switch kind {
	case "user":
		data = h.gen.Users(n)
	case "product":
		data = h.gen.Products(n)
	case "order":
		data = h.gen.Orders(n)
	default:
		sendError(c, svcerrors.ErrInvalidRequest("type must be one of user, product, order"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "type": kind, "count": n, "data": data})
}

// Batch handles GET /api/batch?users=&products=&orders=.
func (h *DataHandler) Batch(c *gin.Context) {
	users, ok := countParam(c, "users", constants.DefaultGenerateCount, 0)
	if !ok {
		return
	}
	products, ok := countParam(c, "products", constants.DefaultGenerateCount, 0)
	if !ok {
		return
	}
	orders, ok := countParam(c, "orders", constants.DefaultGenerateCount, 0)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"counts":  gin.H{"users": users, "products": products, "orders": orders},
		"data": gin.H{
			"users":    h.gen.Users(users),
			"products": h.gen.Products(products),
			"orders":   h.gen.Orders(orders),
		},
	})
}

// Echo handles POST /api/echo and reports what it received.
func (h *DataHandler) Echo(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		sendError(c, svcerrors.ErrInvalidRequest("could not read body"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"size":         len(body),
		"content_type": c.ContentType(),
		"overflow":     len(body) >= constants.OverflowThreshold,
	})
}

// countParam reads an integer query parameter in [lo, MaxGenerateCount].
// It writes the 400 response itself and reports false on bad input.
func countParam(c *gin.Context, name string, def, lo int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > constants.MaxGenerateCount {
		sendError(c, svcerrors.ErrInvalidRequest(fmt.Sprintf("%s must be an integer between %d and %d", name, lo, constants.MaxGenerateCount)))
		return 0, false
	}
	return n, true
}
