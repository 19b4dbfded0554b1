package brl

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1.234,56", "1234.56", true},
		{"3.760,96", "3760.96", true},
		{"0,01", "0.01", true},
		{"45,90", "45.9", true},
		{"R$ 4,90", "4.9", true},
		{"R$4,90", "4.9", true},
		{"-R$ 59,00", "-59", true},
		{"- R$ 198,00", "-198", true},
		{"-1.000,00", "-1000", true},
		{"−1.000,00", "-1000", true}, // unicode minus
		{"16.007,54", "16007.54", true},
		{"", "", false},
		{"abc", "", false},
		{"R$", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseMoney(tt.input)
		require.Equal(t, tt.ok, ok, "input %q", tt.input)
		if ok {
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"input %q: got %s want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseMoneyRoundTripsToTheCent(t *testing.T) {
	for _, s := range []string{"0,01", "1,00", "999,99", "1.000,00", "12.068,55", "123.456.789,01"} {
		d, ok := ParseMoney(s)
		require.True(t, ok, s)
		assert.Equal(t, d.StringFixed(2), Cents(d).StringFixed(2))

		formatted := FormatBRL(d)
		reparsed, ok := ParseMoney(formatted)
		require.True(t, ok, formatted)
		assert.True(t, d.Equal(reparsed), "round trip %q -> %q", s, formatted)
	}
}

func TestFormatBRL(t *testing.T) {
	d := decimal.RequireFromString("3760.96")
	got := FormatBRL(d)
	assert.True(t, strings.HasPrefix(got, "R$"), got)
	assert.Contains(t, got, "3.760,96")
}

func TestWithinCent(t *testing.T) {
	a := decimal.RequireFromString("100.00")
	assert.True(t, WithinCent(a, decimal.RequireFromString("100.01")))
	assert.True(t, WithinCent(a, decimal.RequireFromString("99.99")))
	assert.False(t, WithinCent(a, decimal.RequireFromString("100.02")))
}

func TestMoneyPatternFindsSignedTokens(t *testing.T) {
	line := "02/01 PIX RECEBIDO JOAO 150,00 1.150,00"
	matches := MoneyPattern.FindAllString(line, -1)
	require.Len(t, matches, 2)
	assert.Equal(t, "150,00", matches[0])
	assert.Equal(t, "1.150,00", matches[1])
}
