package orderclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/orderwatch/internal/order"
)

func TestGetOrderByID_SendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42","paymentStatus":"paid","totalAmount":30,"seat":"B12"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithTokenSource(StaticToken("tok-1")))
	o, err := c.GetOrderByID(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "/orders/42", gotPath)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Contains(t, o.Extra, "seat")
}

func TestGetOrderByID_ToleratesDetailShapes(t *testing.T) {
	bodies := []string{
		`{"id":"42","paymentStatus":"PAID","event":{"title":"Jazz Night","startDate":"2025-05-01"}}`,
		`{"id":"42","paymentStatus":"PAID","quantity":"2"}`,
		`{"id":"42","paymentStatus":"PAID","createdAt":""}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		o, err := NewClient(srv.URL).GetOrderByID(context.Background(), "42")
		srv.Close()
		require.NoError(t, err, body)
		assert.Equal(t, order.PaymentPaid, o.PaymentStatus, body)
	}
}

func TestGetOrderByID_ForwardsContextToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"1","paymentStatus":"PENDING"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(ChainTokens(ContextToken(), StaticToken("fallback"))))

	_, err := c.GetOrderByID(WithToken(context.Background(), "caller"), "1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer caller", gotAuth)

	_, err = c.GetOrderByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer fallback", gotAuth)
}

func TestErrorContract(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"string message", http.StatusNotFound, `{"message":"Order not found","statusCode":404}`, "Order not found"},
		{"list message", http.StatusBadRequest, `{"message":["quantity must be positive","eventId is required"],"statusCode":400}`, "quantity must be positive; eventId is required"},
		{"markup stripped", http.StatusBadGateway, `{"message":"<b>upstream</b> <script>alert(1)</script>down","statusCode":502}`, "upstream down"},
		{"no payload", http.StatusInternalServerError, `oops`, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).GetOrderByID(context.Background(), "9")
			require.Error(t, err)

			msg, ok := MessageOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantMsg, msg)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetOrderByID(context.Background(), "404")
	assert.True(t, IsNotFound(err))
}

func TestCreateAndUpdateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			var req CreateOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "evt-1", req.EventID)
			assert.Equal(t, 1, req.Quantity)
			_, _ = w.Write([]byte(`{"id":100,"paymentStatus":"PENDING"}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/orders/100/status":
			var req UpdateStatusRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, order.PaymentCancelled, req.PaymentStatus)
			_, _ = w.Write([]byte(`{"id":100,"paymentStatus":"CANCELLED"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	created, err := c.CreateOrder(context.Background(), CreateOrderRequest{EventID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, order.ID("100"), created.ID)

	updated, err := c.UpdateOrderStatus(context.Background(), "100", order.PaymentCancelled)
	require.NoError(t, err)
	assert.True(t, updated.PaymentStatus.IsTerminal())

	_, err = c.CreateOrder(context.Background(), CreateOrderRequest{})
	assert.Error(t, err)
}
