// Package promptpay builds EMVCo merchant-presented QR payloads for the Thai
// PromptPay scheme.
package promptpay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPayee  = errors.New("invalid_promptpay_payee")
	ErrInvalidAmount = errors.New("invalid_promptpay_amount")
)

const (
	tagVersion          = "00"
	tagInitiationMethod = "01"
	tagMerchantAccount  = "29"
	tagCountryCode      = "58"
	tagCurrency         = "53"
	tagAmount           = "54"
	tagCRC              = "63"

	subTagAID      = "00"
	subTagPhone    = "01"
	subTagTaxID    = "02"
	subTagEWallet  = "03"
	promptPayAID   = "A000000677010111"
	payloadVersion = "01"
	staticQR       = "11"
	dynamicQR      = "12"
	countryTH      = "TH"
	currencyTHB    = "764"

	maxAmountLength = 13
)

// PayeeKind tells which PromptPay proxy an identifier is.
type PayeeKind string

const (
	PayeePhone   PayeeKind = "phone"
	PayeeTaxID   PayeeKind = "tax_id"
	PayeeEWallet PayeeKind = "ewallet"
)

// Payee is a normalised PromptPay proxy.
type Payee struct {
	Kind  PayeeKind
	Value string
}

// ParsePayee accepts a Thai mobile number (10 digits with leading 0, or
// already prefixed with 66), a 13-digit national/tax id, or a 15-digit
// e-wallet id. Separators are ignored.
func ParsePayee(raw string) (Payee, error) {
	digits := onlyDigits(raw)
	switch {
	case len(digits) == 10 && digits[0] == '0':
		return Payee{Kind: PayeePhone, Value: formatPhone("66" + digits[1:])}, nil
	case len(digits) == 11 && strings.HasPrefix(digits, "66"):
		return Payee{Kind: PayeePhone, Value: formatPhone(digits)}, nil
	case len(digits) == 13 && strings.HasPrefix(digits, "0066"):
		return Payee{Kind: PayeePhone, Value: digits}, nil
	case len(digits) == 13:
		return Payee{Kind: PayeeTaxID, Value: digits}, nil
	case len(digits) == 15:
		return Payee{Kind: PayeeEWallet, Value: digits}, nil
	default:
		return Payee{}, ErrInvalidPayee
	}
}

// BuildPayload returns the QR payload string for payeeID and amount. The
// trailing CRC is a CRC-16/CCITT-FALSE over everything before it, including
// the "6304" tag header.
func BuildPayload(payeeID string, amount decimal.Decimal) (string, error) {
	payee, err := ParsePayee(payeeID)
	if err != nil {
		return "", err
	}
	if amount.IsNegative() {
		return "", ErrInvalidAmount
	}
	formatted := FormatAmount(amount)
	if len(formatted) > maxAmountLength {
		return "", ErrInvalidAmount
	}

	method := dynamicQR
	if amount.IsZero() {
		method = staticQR
	}

	var sb strings.Builder
	sb.WriteString(field(tagVersion, payloadVersion))
	sb.WriteString(field(tagInitiationMethod, method))
	sb.WriteString(field(tagMerchantAccount, merchantAccount(payee)))
	sb.WriteString(field(tagCountryCode, countryTH))
	sb.WriteString(field(tagCurrency, currencyTHB))
	sb.WriteString(field(tagAmount, formatted))
	sb.WriteString(tagCRC + "04")

	prefix := sb.String()
	return prefix + fmt.Sprintf("%04X", CRC16([]byte(prefix))), nil
}

// FormatAmount always renders two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// CRC16 is CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no reflection.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func merchantAccount(p Payee) string {
	sub := subTagPhone
	switch p.Kind {
	case PayeeTaxID:
		sub = subTagTaxID
	case PayeeEWallet:
		sub = subTagEWallet
	}
	return field(subTagAID, promptPayAID) + field(sub, p.Value)
}

func field(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func formatPhone(withCountry string) string {
	return strings.Repeat("0", 13-len(withCountry)) + withCountry
}

func onlyDigits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
