package core

import (
	"errors"
	"testing"
)

func TestBuildRequirement_AbsentWhenUnset(t *testing.T) {
	for name, req := range map[string]*Requirement{
		"nil":   nil,
		"empty": {},
	} {
		fragment, err := BuildRequirement(req)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if fragment != nil {
			t.Fatalf("%s: expected absent fragment, got %#v", name, fragment)
		}
	}
}

func TestBuildRequirement_OnlySetFields(t *testing.T) {
	fragment, err := BuildRequirement(&Requirement{
		MRTD:                true,
		CardReader:          CardReaderClass2,
		CertificatePolicies: []string{"1.2.752.78.1.5"},
		PersonalNumber:      "199001011234",
	})
	if err != nil {
		t.Fatalf("build requirement: %v", err)
	}
	if len(fragment) != 4 {
		t.Fatalf("expected four keys, got %#v", fragment)
	}
	if _, ok := fragment["pinCode"]; ok {
		t.Fatalf("pinCode must be omitted when unset")
	}
	if fragment["mrtd"] != true || fragment["cardReader"] != "class2" || fragment["personalNumber"] != "199001011234" {
		t.Fatalf("unexpected fragment %#v", fragment)
	}
	policies, _ := fragment["certificatePolicies"].([]string)
	if len(policies) != 1 || policies[0] != "1.2.752.78.1.5" {
		t.Fatalf("unexpected certificate policies %#v", fragment["certificatePolicies"])
	}
}

func TestBuildRequirement_RejectsMalformedPersonalNumber(t *testing.T) {
	for _, value := range []string{"19900101123", "1990010112345", "19900101123X", "1990-0101123", "            "} {
		_, err := BuildRequirement(&Requirement{PersonalNumber: value})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected invalid input, got %v", value, err)
		}
		var invalid *InvalidInputError
		if !errors.As(err, &invalid) || invalid.Field != "personalNumber" {
			t.Fatalf("%q: expected personalNumber field error, got %v", value, err)
		}
	}
}

func TestBuildRequirement_RejectsUnknownCardReader(t *testing.T) {
	_, err := BuildRequirement(&Requirement{CardReader: "class3"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
