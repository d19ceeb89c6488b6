// Package model defines domain models for the flight surety ledger.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a monetary value in gwei, the smallest denomination the ledger tracks.
type Amount uint64

const (
	// Gwei is the smallest unit.
	Gwei Amount = 1
	// Ether is one whole unit.
	Ether Amount = 1_000_000_000
)

// String renders the amount in whole units with up to nine decimals.
func (a Amount) String() string {
	whole := uint64(a / Ether)
	frac := uint64(a % Ether)
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	return strings.TrimRight(s, "0")
}

// ParseAmount parses a decimal amount of whole units ("0.5", "10") into gwei.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	wholePart, fracPart, _ := strings.Cut(s, ".")
	if wholePart == "" {
		wholePart = "0"
	}
	whole, err := strconv.ParseUint(wholePart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if len(fracPart) > 9 {
		return 0, fmt.Errorf("parse amount %q: more than 9 decimals", s)
	}
	var frac uint64
	if fracPart != "" {
		frac, err = strconv.ParseUint(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
	}
	if whole > (^uint64(0)-frac)/uint64(Ether) {
		return 0, fmt.Errorf("parse amount %q: overflow", s)
	}
	return Amount(whole*uint64(Ether) + frac), nil
}
