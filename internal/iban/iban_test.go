package iban

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "NL91ABNA0417164300", Normalize(" nl91 abna 0417\t1643 00\n"))
	assert.Equal(t, "", Normalize("   "))
}

func TestValidateChecksum(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       bool
	}{
		{name: "abn amro", identifier: "NL91ABNA0417164300", want: true},
		{name: "rabobank", identifier: "NL39RABO0300065264", want: true},
		{name: "lowercase with spaces", identifier: "nl91 abna 0417 1643 00", want: true},
		{name: "german", identifier: "DE89370400440532013000", want: true},
		{name: "belgian", identifier: "BE68539007547034", want: true},
		{name: "wrong check digits", identifier: "NL92ABNA0417164300", want: false},
		{name: "transposed body", identifier: "NL91ABNA0417164030", want: false},
		{name: "missing country", identifier: "91ABNA0417164300", want: false},
		{name: "letters as check digits", identifier: "NLXXABNA0417164300", want: false},
		{name: "punctuation", identifier: "NL91-ABNA-0417-1643-00", want: false},
		{name: "too short", identifier: "NL91", want: false},
		{name: "empty", identifier: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateChecksum(tt.identifier))
		})
	}
}

func TestValidateChecksumGeneratedIdentifiers(t *testing.T) {
	bodies := []struct {
		country string
		body    string
	}{
		{"NL", "ABNA0417164300"},
		{"NL", "INGB0001234567"},
		{"NL", "RABO0300065264"},
		{"DE", "370400440532013000"},
		{"GB", "NWBK60161331926819"},
		{"FR", "20041010050500013M02606"},
	}

	for _, b := range bodies {
		t.Run(b.country+b.body, func(t *testing.T) {
			digits, err := CheckDigits(b.country, b.body)
			require.NoError(t, err)

			assert.True(t, ValidateChecksum(b.country+digits+b.body))

			n, err := strconv.Atoi(digits)
			require.NoError(t, err)
			bumped := fmt.Sprintf("%02d", (n+1)%100)
			assert.False(t, ValidateChecksum(b.country+bumped+b.body))
		})
	}
}

func TestCheckDigits(t *testing.T) {
	digits, err := CheckDigits("nl", "abna 0417 1643 00")
	require.NoError(t, err)
	assert.Equal(t, "91", digits)

	_, err = CheckDigits("N1", "ABNA0417164300")
	assert.Error(t, err)
}

func TestValidateBICShape(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABNANL2A", true},
		{"abnanl2a", true},
		{"RABO NL 2U", true},
		{"DEUTDEFF500", true},
		{"ABNANL2", false},
		{"ABNANL2AXX", false},
		{"ABNANL2A1234", false},
		{"AB1ANL2A", false},
		{"ABNA1L2A", false},
		{"ABNANL2A!", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateBICShape(tt.code))
		})
	}
}

func TestResolveBIC(t *testing.T) {
	bic, err := ResolveBIC("NL91ABNA0417164300")
	require.NoError(t, err)
	assert.Equal(t, "ABNANL2A", bic)

	bic, err = ResolveBIC("nl39 rabo 0300 0652 64")
	require.NoError(t, err)
	assert.Equal(t, "RABONL2U", bic)
}

func TestResolveBICDeterministic(t *testing.T) {
	first, err := ResolveBIC("NL91ABNA0417164300")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ResolveBIC("NL02ABNA0123456789")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveBICFailures(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
	}{
		{name: "unknown bank code", identifier: "NL91ZZZZ0417164300"},
		{name: "unknown bank code other body", identifier: "DE00ZZZZ9999"},
		{name: "digits at bank code offset", identifier: "DE89370400440532013000"},
		{name: "too short", identifier: "NL91AB"},
		{name: "empty", identifier: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveBIC(tt.identifier)
			assert.ErrorIs(t, err, ErrRoutingLookupFailed)
		})
	}
}

func TestRoutingTableIsCanonical(t *testing.T) {
	require.NotEmpty(t, routingTable)

	for code, bic := range routingTable {
		assert.Regexp(t, `^[A-Z]{4}$`, code)
		assert.True(t, ValidateBICShape(bic), "bic %s for %s", bic, code)
		assert.Equal(t, code, bic[:4])
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	bic, ok := Lookup("ingb")
	require.True(t, ok)
	assert.Equal(t, "INGBNL2A", bic)

	_, ok = Lookup("NOPE")
	assert.False(t, ok)
}
