package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2025-04-02", want: "2025-04-02"},
		{in: "2025-04-02T23:15:00Z", want: "2025-04-02"},
		{in: "2025-04-02T01:00:00+05:00", want: "2025-04-01"},
		{in: "04/02/2025", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDateJSON(t *testing.T) {
	var c Consultation
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-05-10","time":"09:00"}`), &c))
	assert.Equal(t, "2025-05-10", c.Date.String())

	out, err := json.Marshal(struct {
		Date Date `json:"date"`
	}{Date: c.Date})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-05-10"}`, string(out))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-01-31", d.String())

	require.NoError(t, d.Scan([]byte("2024-12-01")))
	assert.Equal(t, "2024-12-01", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDateArithmetic(t *testing.T) {
	today := Day(time.Date(2025, 2, 28, 18, 30, 0, 0, time.UTC))
	assert.Equal(t, "2025-03-01", today.AddDays(1).String())
	assert.True(t, today.Before(today.AddDays(1)))
	assert.True(t, today.Equal(Day(time.Date(2025, 2, 28, 1, 0, 0, 0, time.UTC))))
}
