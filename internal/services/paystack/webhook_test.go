package paystack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnitsUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MinorUnits
		wantErr bool
	}{
		{name: "number", input: `{"amount": 500000}`, want: 500000},
		{name: "quoted string", input: `{"amount": "500000"}`, want: 500000},
		{name: "decimal string", input: `{"amount": "1500.00"}`, want: 1500},
		{name: "null", input: `{"amount": null}`, want: 0},
		{name: "absent", input: `{}`, want: 0},
		{name: "non-numeric", input: `{"amount": "fifty"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data WebhookEventData
			err := json.Unmarshal([]byte(tt.input), &data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data.Amount)
		})
	}
}

func TestWebhookEventDataParsesMetadata(t *testing.T) {
	raw := `{
		"reference": "txn_123",
		"offline_reference": "OFF-456",
		"amount": 250000,
		"status": "success",
		"currency": "NGN",
		"metadata": {"invoice_no": "SINV-0001", "company": "Test Clinic"}
	}`

	var data WebhookEventData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	assert.Equal(t, "txn_123", data.Reference)
	assert.Equal(t, "OFF-456", data.OfflineReference)
	assert.EqualValues(t, 250000, data.Amount)
	require.NotNil(t, data.Metadata)
	assert.Equal(t, "SINV-0001", data.Metadata.InvoiceNo)
	assert.Equal(t, "Test Clinic", data.Metadata.Company)
}
