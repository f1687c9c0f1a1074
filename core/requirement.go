package core

import (
	"strings"
)

type CardReader string

const (
	CardReaderClass1 CardReader = "class1"
	CardReaderClass2 CardReader = "class2"
)

const personalNumberLength = 12

// Requirement holds optional provider policy constraints for an order. Only
// the fields that are set are sent.
type Requirement struct {
	PinCode             bool
	MRTD                bool
	CardReader          CardReader
	CertificatePolicies []string
	PersonalNumber      string
}

// BuildRequirement returns the request fragment for req, or nil when no
// field is set so the caller can omit the whole "requirement" key.
func BuildRequirement(req *Requirement) (map[string]any, error) {
	if req == nil {
		return nil, nil
	}
	fragment := map[string]any{}
	if req.PinCode {
		fragment["pinCode"] = true
	}
	if req.MRTD {
		fragment["mrtd"] = true
	}
	if req.CardReader != "" {
		if req.CardReader != CardReaderClass1 && req.CardReader != CardReaderClass2 {
			return nil, invalidInput("cardReader", "unsupported card reader class %q", req.CardReader)
		}
		fragment["cardReader"] = string(req.CardReader)
	}
	if req.CertificatePolicies != nil {
		fragment["certificatePolicies"] = append([]string(nil), req.CertificatePolicies...)
	}
	if req.PersonalNumber != "" {
		if err := ValidatePersonalNumber(req.PersonalNumber); err != nil {
			return nil, err
		}
		fragment["personalNumber"] = req.PersonalNumber
	}
	if len(fragment) == 0 {
		return nil, nil
	}
	return fragment, nil
}

// ValidatePersonalNumber checks the 12 digit YYYYMMDDNNNN form. It does not
// verify the date or the checksum digit.
func ValidatePersonalNumber(value string) error {
	if len(value) != personalNumberLength {
		return invalidInput("personalNumber", "personal number not of length %d", personalNumberLength)
	}
	if strings.IndexFunc(value, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return invalidInput("personalNumber", "personal number includes non digits")
	}
	return nil
}
