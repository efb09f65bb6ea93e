// Package itemcodec converts purchase-list entries to and from their row text.
//
// An entry is stored as "<name>" when the quantity is 1 and as "<name> (<qty>)"
// otherwise. A name that itself ends in a parenthesized number cannot be told
// apart from a quantity suffix; such names parse back with the suffix taken as
// the quantity.
package itemcodec

import (
	"regexp"
	"strconv"
	"strings"
)

var quantitySuffix = regexp.MustCompile(`\s*\((\d+)\)\s*$`)

// Format returns the row text for name and qty.
func Format(name string, qty int) string {
	if qty == 1 {
		return name
	}
	return name + " (" + strconv.Itoa(qty) + ")"
}

// Parse splits row text into a name and a quantity. It never fails: text
// without a usable suffix has quantity 1. The returned name may be empty.
func Parse(text string) (string, int) {
	loc := quantitySuffix.FindStringSubmatchIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), 1
	}

	qty, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil || qty < 1 {
		return strings.TrimSpace(text), 1
	}

	return strings.TrimSpace(text[:loc[0]]), qty
}

// Normalize returns the key used to decide whether two names are the same entry.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
