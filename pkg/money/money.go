package money

import "strconv"

// DefaultCurrency is the single settlement currency. Amounts are whole
// units; there is no minor unit.
const DefaultCurrency = "XAF"

// Format renders an integer amount with thousands grouping and the
// currency code, e.g. 1250000 -> "1 250 000 XAF".
func Format(amount int64) string {
	return FormatIn(amount, DefaultCurrency)
}

// FormatIn renders the amount with an explicit currency code.
func FormatIn(amount int64, currency string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var grouped []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ' ')
		}
		grouped = append(grouped, d)
	}

	out := string(grouped)
	if negative {
		out = "-" + out
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}
