package enums

import "testing"

func TestParsePromotionType(t *testing.T) {
	got, err := ParsePromotionType(" Percentage ")
	if err != nil || got != PromotionTypePercentage {
		t.Fatalf("expected percentage, got %q err=%v", got, err)
	}
	if _, err := ParsePromotionType("3x2"); err == nil {
		t.Fatal("expected unknown type to fail")
	}
	if !PromotionTypeFixedAmount.RequiresValue() || PromotionTypeBuyTwoPayOne.RequiresValue() {
		t.Fatal("unexpected RequiresValue result")
	}
}

func TestParseUserRole(t *testing.T) {
	got, err := ParseUserRole("MARKETING")
	if err != nil || got != UserRoleMarketing {
		t.Fatalf("expected marketing, got %q err=%v", got, err)
	}
	if UserRole("superuser").IsValid() {
		t.Fatal("superuser is not a shop role")
	}
	if _, err := ParseUserRole(""); err == nil {
		t.Fatal("expected empty role to fail")
	}
}
