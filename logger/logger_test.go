package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "phone number",
			input: "call me at +39 333 123 4567 please",
			want:  "call me at [phone] please",
		},
		{
			name:  "email address",
			input: "send it to mario.rossi@example.com thanks",
			want:  "send it to [email] thanks",
		},
		{
			name:  "plain message untouched",
			input: "aggiungi 2 mozzarella al carrello",
			want:  "aggiungi 2 mozzarella al carrello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactMessage(tt.input))
		})
	}
}

func TestContextHandler_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	handler := NewContextHandler(slog.NewTextHandler(&buf, nil))
	log := slog.New(handler)

	ctx := WithCustomer(context.Background(), "cust-1", "ws-1")
	ctx = WithOperation(ctx, "add")

	log.InfoContext(ctx, "cart updated")

	out := buf.String()
	assert.Contains(t, out, "customer_id=cust-1")
	assert.Contains(t, out, "workspace_id=ws-1")
	assert.Contains(t, out, "operation=add")
}

func TestContextHandler_RedactsMessageText(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("customer wrote: call me at +39 333 123 4567 or mario@example.com")

	out := buf.String()
	assert.Contains(t, out, "[phone]")
	assert.Contains(t, out, "[email]")
	assert.NotContains(t, out, "333 123 4567")
	assert.NotContains(t, out, "mario@example.com")
}

func TestContextHandler_CommonFields(t *testing.T) {
	var buf bytes.Buffer
	handler := NewContextHandler(
		slog.NewTextHandler(&buf, nil),
		slog.String("service", "cart-engine"),
	)
	slog.New(handler).Info("hello")

	assert.True(t, strings.Contains(buf.String(), "service=cart-engine"))
}
