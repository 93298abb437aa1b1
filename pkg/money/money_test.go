package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "0 XAF"},
		{950, "950 XAF"},
		{1000, "1 000 XAF"},
		{1250000, "1 250 000 XAF"},
		{-75000, "-75 000 XAF"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(tc.amount))
	}
}

func TestFormatIn(t *testing.T) {
	assert.Equal(t, "1 000 EUR", FormatIn(1000, "EUR"))
	assert.Equal(t, "1 000", FormatIn(1000, ""))
}
