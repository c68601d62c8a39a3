package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/port"
)

func TestBuildMessage(t *testing.T) {
	event := port.SaleEvent{
		SaleID:     "sale-1",
		CustomerID: "c1",
		OperatorID: "op1",
		Subtotal:   decimal.RequireFromString("50.00"),
		Discount:   decimal.RequireFromString("7.50"),
		FinalTotal: decimal.RequireFromString("42.50"),
		Lines: []domain.SaleLine{
			{SaleID: "sale-1", Kind: domain.KindMerchandise, RefID: "hoodie", Quantity: 2},
		},
		CommittedAt: time.Now(),
	}

	msg, err := buildMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("sale-1"), msg.Key, "messages are keyed by sale id")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("sale.committed"), msg.Headers[0].Value)

	var decoded port.SaleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "sale-1", decoded.SaleID)
	assert.True(t, decoded.FinalTotal.Equal(event.FinalTotal))
	require.Len(t, decoded.Lines, 1)
	assert.Equal(t, "hoodie", decoded.Lines[0].RefID)
}
