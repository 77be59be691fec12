package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/orders"
)

// OrderView is the JSON shape of a tracked order.
type OrderView struct {
	Ref         string             `json:"ref"`
	OrderID     string             `json:"order_id,omitempty"`
	Symbol      string             `json:"symbol"`
	Side        market.Side        `json:"side"`
	Price       float64            `json:"price"`
	Size        float64            `json:"size"`
	Filled      float64            `json:"filled"`
	Remaining   float64            `json:"remaining"`
	TimeInForce market.TimeInForce `json:"time_in_force"`
	State       orders.State       `json:"state"`
	Created     time.Time          `json:"created"`
	Updated     time.Time          `json:"updated"`
}

func viewOf(o orders.Order) OrderView {
	return OrderView{
		Ref:         o.Ref,
		OrderID:     o.OrderID,
		Symbol:      o.Request.Symbol(),
		Side:        o.Request.Side(),
		Price:       o.Request.Price(),
		Size:        o.Request.Size(),
		Filled:      o.Info.Fulfilled,
		Remaining:   o.Info.Remaining(),
		TimeInForce: o.Request.TimeInForce(),
		State:       o.State,
		Created:     o.Created,
		Updated:     o.Updated,
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	st := h.src.State()
	code := http.StatusOK
	if st.Status == market.StatusError {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"service":   ServiceName,
		"status":    st.Status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status handles GET /status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.src.State())
}

// Orders handles GET /orders. ?open=true drops terminal orders.
func (h *Handler) Orders(c *gin.Context) {
	openOnly := c.Query("open") == "true"

	out := []OrderView{}
	for _, o := range h.src.Orders() {
		if openOnly && o.State.Terminal() {
			continue
		}
		out = append(out, viewOf(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
}
