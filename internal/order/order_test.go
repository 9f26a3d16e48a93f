package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	valid := []string{"42", " 42 ", "ord_9f8a-1"}
	for _, raw := range valid {
		_, err := ValidateID(raw)
		assert.NoError(t, err, raw)
	}

	invalid := []string{"", "   ", "undefined", "null", "42/../1", "a b", "<script>"}
	for _, raw := range invalid {
		_, err := ValidateID(raw)
		assert.ErrorIs(t, err, ErrInvalidID, raw)
	}
}

func TestOrder_UnmarshalKeepsExtraFields(t *testing.T) {
	raw := `{
		"id": 42,
		"paymentStatus": "PENDING",
		"totalAmount": "129.50",
		"createdAt": "2026-03-01T10:00:00Z",
		"event": {"id": "evt-1", "title": "Jazz Night", "venue": "Blue Hall"},
		"promoCode": "SPRING",
		"attendees": [{"name": "A"}]
	}`

	var o Order
	require.NoError(t, json.Unmarshal([]byte(raw), &o))

	assert.Equal(t, ID("42"), o.ID)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "129.50", o.TotalAmount.String())
	require.NotNil(t, o.CreatedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *o.CreatedAt)
	require.NotNil(t, o.Event)
	assert.Equal(t, "Jazz Night", o.Event.Title)
	assert.Contains(t, o.Extra, "promoCode")
	assert.Contains(t, o.Extra, "attendees")
	assert.NotContains(t, o.Extra, "id")
}

func TestOrder_MarshalReemitsExtra(t *testing.T) {
	o := Order{
		ID:            "7",
		PaymentStatus: PaymentPaid,
		Extra:         map[string]json.RawMessage{"promoCode": json.RawMessage(`"SPRING"`)},
	}
	data, err := json.Marshal(o)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "SPRING", back["promoCode"])
	assert.Equal(t, "PAID", back["paymentStatus"])
	assert.Equal(t, "7", back["id"])
}

func TestOrder_UnmarshalToleratesDetailShapes(t *testing.T) {
	cases := map[string]struct {
		body  string
		check func(t *testing.T, o Order)
	}{
		"date-only event start": {
			body: `{"id":"42","paymentStatus":"PAID","event":{"title":"Jazz Night","startDate":"2025-05-01"}}`,
			check: func(t *testing.T, o Order) {
				require.NotNil(t, o.Event)
				require.NotNil(t, o.Event.StartDate)
				assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), *o.Event.StartDate)
				assert.Equal(t, "Jazz Night", o.Event.Title)
			},
		},
		"quantity as string": {
			body: `{"id":"42","paymentStatus":"PAID","quantity":"2"}`,
			check: func(t *testing.T, o Order) {
				assert.Equal(t, 2, o.Quantity)
				assert.Empty(t, o.Extra)
			},
		},
		"empty createdAt": {
			body: `{"id":"42","paymentStatus":"PAID","createdAt":""}`,
			check: func(t *testing.T, o Order) {
				assert.Nil(t, o.CreatedAt)
			},
		},
		"unparseable details kept raw": {
			body: `{"id":"42","paymentStatus":"PAID","createdAt":"soon","quantity":"two","event":"jazz"}`,
			check: func(t *testing.T, o Order) {
				assert.Nil(t, o.CreatedAt)
				assert.Nil(t, o.Event)
				assert.Zero(t, o.Quantity)
				assert.JSONEq(t, `"soon"`, string(o.Extra["createdAt"]))
				assert.JSONEq(t, `"two"`, string(o.Extra["quantity"]))
				assert.JSONEq(t, `"jazz"`, string(o.Extra["event"]))
			},
		},
		"unix timestamps": {
			body: `{"id":"42","paymentStatus":"PAID","createdAt":1746057600,"event":{"startDate":1746057600000}}`,
			check: func(t *testing.T, o Order) {
				require.NotNil(t, o.CreatedAt)
				assert.Equal(t, int64(1746057600), o.CreatedAt.Unix())
				require.NotNil(t, o.Event.StartDate)
				assert.Equal(t, int64(1746057600), o.Event.StartDate.Unix())
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var o Order
			require.NoError(t, json.Unmarshal([]byte(tc.body), &o))
			assert.Equal(t, PaymentPaid, o.PaymentStatus)
			assert.Equal(t, ID("42"), o.ID)
			tc.check(t, o)
		})
	}
}

func TestOrder_UnmarshalRejectsMalformedStatus(t *testing.T) {
	var o Order
	assert.Error(t, json.Unmarshal([]byte(`{"id":"42","paymentStatus":{"code":1}}`), &o))
}

func TestOrder_MarshalOmitsUnknownDates(t *testing.T) {
	data, err := json.Marshal(Order{ID: "42", PaymentStatus: PaymentPending, Event: &Event{Title: "Jazz Night"}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "0001-01-01")
	assert.NotContains(t, string(data), "createdAt")
	assert.NotContains(t, string(data), "startDate")
}

func TestSnapshot_Terminal(t *testing.T) {
	now := time.Now()
	snap := NewSnapshot("42", &Order{PaymentStatus: PaymentRefunded}, now)
	assert.True(t, snap.Terminal())
	assert.Equal(t, now, snap.FetchedAt)

	empty := NewSnapshot("42", nil, now)
	assert.False(t, empty.Terminal())
}
