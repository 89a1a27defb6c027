// Package uk implements the UK statutory calculators (PAYE, NIC, student
// loans) and the rules that check payslips against them.
package uk

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxCodeKind says how a tax code is applied.
type TaxCodeKind string

const (
	// KindBanded: allowance then the year's bands.
	KindBanded TaxCodeKind = "banded"
	// KindBasicRate (BR), KindHigherRate (D0), KindAdditionalRate (D1):
	// one flat rate on all pay, no allowance.
	KindBasicRate      TaxCodeKind = "BR"
	KindHigherRate     TaxCodeKind = "D0"
	KindAdditionalRate TaxCodeKind = "D1"
	// KindNoTax (NT): nothing is deducted.
	KindNoTax TaxCodeKind = "NT"
)

// TaxCode is a parsed PAYE tax code.
type TaxCode struct {
	Raw    string
	Kind   TaxCodeKind
	Region string // "S" (Scotland), "C" (Wales) or ""
	// Allowance is the annual allowance encoded in the code: positive for
	// ordinary codes, negative for K codes, nil when the code carries no
	// usable number and the year's default applies.
	Allowance *decimal.Decimal
	// NonCumulative is set by the W1/M1/X emergency suffixes.
	NonCumulative bool
}

var emergencySuffixes = []string{"W1", "M1", "X"}

// ParseTaxCode normalizes and classifies a tax code. It never fails: codes it
// cannot read fall back to a banded code with the default allowance.
func ParseTaxCode(raw string) TaxCode {
	code := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	tc := TaxCode{Raw: raw, Kind: KindBanded}

	for _, suffix := range emergencySuffixes {
		if strings.HasSuffix(code, suffix) && len(code) > len(suffix) {
			code = strings.TrimSuffix(code, suffix)
			tc.NonCumulative = true
			break
		}
	}
	if len(code) > 1 && (code[0] == 'S' || code[0] == 'C') && isRegionBody(code[1:]) {
		tc.Region = code[:1]
		code = code[1:]
	}

	switch code {
	case "BR":
		tc.Kind = KindBasicRate
		return tc
	case "D0":
		tc.Kind = KindHigherRate
		return tc
	case "D1":
		tc.Kind = KindAdditionalRate
		return tc
	case "NT":
		tc.Kind = KindNoTax
		return tc
	}

	sign := int64(1)
	if strings.HasPrefix(code, "K") {
		sign = -1
		code = code[1:]
	}
	digits := leadingDigits(code)
	if digits == "" {
		return tc
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return tc
	}
	allowance := decimal.NewFromInt(sign * n * 10)
	tc.Allowance = &allowance
	return tc
}

func isRegionBody(s string) bool {
	if s == "BR" || s == "D0" || s == "D1" || s == "NT" {
		return true
	}
	if strings.HasPrefix(s, "K") {
		s = s[1:]
	}
	return leadingDigits(s) != ""
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
