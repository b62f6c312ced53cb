package enums

import (
	"fmt"
	"strings"
)

// PromotionType describes how a promotion discounts a product.
type PromotionType string

const (
	PromotionTypePercentage   PromotionType = "percentage"
	PromotionTypeFixedAmount  PromotionType = "fixed_amount"
	PromotionTypeBuyTwoPayOne PromotionType = "buy_two_pay_one"
)

var validPromotionTypes = []PromotionType{
	PromotionTypePercentage,
	PromotionTypeFixedAmount,
	PromotionTypeBuyTwoPayOne,
}

// String implements fmt.Stringer.
func (p PromotionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromotionType.
func (p PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresValue reports whether promotions of this type need a discount value.
func (p PromotionType) RequiresValue() bool {
	return p == PromotionTypePercentage || p == PromotionTypeFixedAmount
}

// ParsePromotionType converts raw input into a PromotionType.
func ParsePromotionType(value string) (PromotionType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPromotionTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}
