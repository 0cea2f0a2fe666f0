package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"100", 10000, false},
		{"100.5", 10050, false},
		{"100.05", 10005, false},
		{"0.01", 1, false},
		{"-2.50", -250, false},
		{"", 0, true},
		{"1.234", 0, true},
		{"1.", 0, true},
		{".5", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	var body struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.5}`), &body))
	assert.Equal(t, Money(1250), body.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price": "7.25"}`), &body))
	assert.Equal(t, Money(725), body.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price": 1e3}`), &body))

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 7.25}`, string(out))
	assert.Equal(t, "-0.05", Money(-5).String())
}
