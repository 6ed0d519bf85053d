package models

import (
	"encoding/json"
	"testing"
)

func TestOrder_PaymentReference(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  string
	}{
		{
			name: "mollie payment id",
			order: Order{
				TransactionID: "tr_fallback",
				MetaData:      []MetaData{{Key: "_mollie_payment_id", Value: "tr_abc"}},
			},
			want: "tr_abc",
		},
		{
			name: "later key used when earlier is empty",
			order: Order{
				MetaData: []MetaData{
					{Key: "_mollie_payment_id", Value: ""},
					{Key: "_payment_id", Value: "tr_legacy"},
				},
			},
			want: "tr_legacy",
		},
		{
			name:  "transaction id fallback",
			order: Order{TransactionID: "tr_txn"},
			want:  "tr_txn",
		},
		{
			name: "non-string meta ignored",
			order: Order{
				MetaData: []MetaData{{Key: "_mollie_payment_id", Value: 42.0}},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.order.PaymentReference(); got != tt.want {
				t.Errorf("PaymentReference() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrder_Key(t *testing.T) {
	order := Order{OrderKey: "wc_order_direct"}
	if got := order.Key(); got != "wc_order_direct" {
		t.Errorf("Key() = %q, want wc_order_direct", got)
	}

	order = Order{MetaData: []MetaData{{Key: "_woocommerce_order_key", Value: "wc_order_meta"}}}
	if got := order.Key(); got != "wc_order_meta" {
		t.Errorf("Key() = %q, want wc_order_meta", got)
	}

	order = Order{}
	if got := order.Key(); got != "" {
		t.Errorf("Key() = %q, want empty", got)
	}
}

func TestOrder_CustomerDetails(t *testing.T) {
	order := Order{
		ID:       12,
		Billing:  &Address{FirstName: " ", Email: "  jan@example.com "},
		Shipping: &Address{FirstName: "Jan", LastName: "Jansen"},
	}

	if got := order.CustomerName(); got != "Jan Jansen" {
		t.Errorf("CustomerName() = %q, want shipping name", got)
	}
	if got := order.CustomerEmail(); got != "jan@example.com" {
		t.Errorf("CustomerEmail() = %q, want trimmed billing email", got)
	}
	if got := order.DisplayNumber(); got != "12" {
		t.Errorf("DisplayNumber() = %q, want id", got)
	}

	order.Number = "2024-0012"
	if got := order.DisplayNumber(); got != "2024-0012" {
		t.Errorf("DisplayNumber() = %q, want number", got)
	}

	if got := (&Order{}).CustomerEmail(); got != "" {
		t.Errorf("CustomerEmail() without billing = %q, want empty", got)
	}
}

func TestOrder_IsDraft(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderDraft, true},
		{OrderAutoDraft, true},
		{OrderPending, false},
		{OrderProcessing, false},
		{OrderCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			order := Order{Status: tt.status}
			if got := order.IsDraft(); got != tt.want {
				t.Errorf("IsDraft() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_DecodesShopPayload(t *testing.T) {
	payload := `{
		"id": 501,
		"number": "501",
		"order_key": "wc_order_xyz",
		"status": "processing",
		"billing": {"first_name": "Piet", "last_name": "Peters", "email": "piet@example.com"},
		"meta_data": [{"id": 1, "key": "_event_name", "value": "Hamlet"}, {"id": 2, "key": "_seats", "value": [1, 2]}]
	}`

	var order Order
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if order.Status != OrderProcessing {
		t.Errorf("Status = %q, want processing", order.Status)
	}
	if got := order.MetaString("_event_name"); got != "Hamlet" {
		t.Errorf("MetaString(_event_name) = %q, want Hamlet", got)
	}
	if got := order.MetaString("_seats"); got != "" {
		t.Errorf("MetaString(_seats) = %q, want empty for non-string value", got)
	}
	if got := order.CustomerName(); got != "Piet Peters" {
		t.Errorf("CustomerName() = %q, want Piet Peters", got)
	}
}
