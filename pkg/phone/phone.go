// Package phone normalizes customer phone numbers to the E164 form used as
// the identity key across the gateway, the help-desk platform and the CRM.
package phone

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`[^\d+]`)

// countryCodes maps ISO country codes to dialing prefixes for the markets
// the clinics operate in.
var countryCodes = map[string]string{
	"BR": "55",
	"US": "1",
	"PT": "351",
	"AR": "54",
	"CL": "56",
	"CO": "57",
	"MX": "52",
	"PE": "51",
	"ES": "34",
}

// NormalizeE164 normalizes a phone number to E164 format: +[country code][number]
// (e.g. +5511999998888). The function is idempotent: feeding its own output
// back in returns the same string.
func NormalizeE164(phone string, defaultCountry string) string {
	if phone == "" {
		return ""
	}

	cleaned := nonDigit.ReplaceAllString(phone, "")

	// Already E164
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	cleaned = strings.TrimLeft(cleaned, "0")
	if cleaned == "" {
		return ""
	}

	countryCode := countryCodes[strings.ToUpper(defaultCountry)]
	if countryCode == "" {
		countryCode = "55"
	}

	// The number may already carry the tenant's country prefix; require it to
	// be longer than the bare prefix so "55" alone is not mistaken for a full
	// number. Guessing other countries' prefixes is unsafe: a Sao Paulo
	// number starting with area code 11 would be mistaken for a US one.
	if strings.HasPrefix(cleaned, countryCode) && len(cleaned) > len(countryCode)+6 {
		return "+" + cleaned
	}

	return "+" + countryCode + cleaned
}

// Digits strips everything but digits, dropping any leading +.
func Digits(phone string) string {
	return strings.TrimPrefix(nonDigit.ReplaceAllString(phone, ""), "+")
}

// LastNine returns the last nine digits of a phone number. Brazilian mobile
// numbers keep their local nine digits stable across country/area formatting
// drift, so a suffix match tolerates records stored with or without +55.
func LastNine(phone string) string {
	digits := Digits(phone)
	if len(digits) <= 9 {
		return digits
	}
	return digits[len(digits)-9:]
}
