package core

import (
	"encoding/base64"
	"strings"
)

const (
	AuthUserDataMaxLength           = 1_500
	SignUserVisibleDataMaxLength    = 40_000
	SignUserNonVisibleDataMaxLength = 200_000
)

type UserVisibleDataFormat string

const UserVisibleDataFormatSimpleMarkdownV1 UserVisibleDataFormat = "simpleMarkdownV1"

type UserAuthData struct {
	Visible       string
	NonVisible    string
	VisibleFormat UserVisibleDataFormat
}

type UserSignData struct {
	Visible       string
	NonVisible    string
	VisibleFormat UserVisibleDataFormat
}

// AuthRequest is the body of an auth order. Empty optional fields are
// omitted on the wire.
type AuthRequest struct {
	EndUserIP             string         `json:"endUserIp"`
	Requirement           map[string]any `json:"requirement,omitempty"`
	UserVisibleData       string         `json:"userVisibleData,omitempty"`
	UserNonVisibleData    string         `json:"userNonVisibleData,omitempty"`
	UserVisibleDataFormat string         `json:"userVisibleDataFormat,omitempty"`
	ReturnURL             string         `json:"returnUrl,omitempty"`
}

type SignRequest struct {
	EndUserIP             string         `json:"endUserIp"`
	UserVisibleData       string         `json:"userVisibleData"`
	Requirement           map[string]any `json:"requirement,omitempty"`
	UserNonVisibleData    string         `json:"userNonVisibleData,omitempty"`
	UserVisibleDataFormat string         `json:"userVisibleDataFormat,omitempty"`
}

// EncodeUserData base64 encodes value. An empty value yields "" so the field
// is omitted; an encoded form longer than ceiling is rejected.
func EncodeUserData(value string, ceiling int, label string) (string, error) {
	if value == "" {
		return "", nil
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(value))
	if ceiling > 0 && len(encoded) > ceiling {
		return "", invalidInput(label, "user %s data too large (%d)", label, len(encoded))
	}
	return encoded, nil
}

func BuildAuthRequest(endUserIP string, requirement *Requirement, data UserAuthData, returnURL string) (AuthRequest, error) {
	endUserIP = strings.TrimSpace(endUserIP)
	if endUserIP == "" {
		return AuthRequest{}, invalidInput("endUserIp", "end user ip is required")
	}
	fragment, err := BuildRequirement(requirement)
	if err != nil {
		return AuthRequest{}, err
	}
	visible, err := EncodeUserData(data.Visible, AuthUserDataMaxLength, "visible")
	if err != nil {
		return AuthRequest{}, err
	}
	nonVisible, err := EncodeUserData(data.NonVisible, AuthUserDataMaxLength, "non visible")
	if err != nil {
		return AuthRequest{}, err
	}
	if err := validateVisibleFormat(data.VisibleFormat); err != nil {
		return AuthRequest{}, err
	}
	return AuthRequest{
		EndUserIP:             endUserIP,
		Requirement:           fragment,
		UserVisibleData:       visible,
		UserNonVisibleData:    nonVisible,
		UserVisibleDataFormat: string(data.VisibleFormat),
		ReturnURL:             strings.TrimSpace(returnURL),
	}, nil
}

func BuildSignRequest(endUserIP string, requirement *Requirement, data UserSignData) (SignRequest, error) {
	endUserIP = strings.TrimSpace(endUserIP)
	if endUserIP == "" {
		return SignRequest{}, invalidInput("endUserIp", "end user ip is required")
	}
	if data.Visible == "" {
		return SignRequest{}, invalidInput("visible", "user visible data is required for sign orders")
	}
	fragment, err := BuildRequirement(requirement)
	if err != nil {
		return SignRequest{}, err
	}
	visible, err := EncodeUserData(data.Visible, SignUserVisibleDataMaxLength, "visible")
	if err != nil {
		return SignRequest{}, err
	}
	nonVisible, err := EncodeUserData(data.NonVisible, SignUserNonVisibleDataMaxLength, "non visible")
	if err != nil {
		return SignRequest{}, err
	}
	if err := validateVisibleFormat(data.VisibleFormat); err != nil {
		return SignRequest{}, err
	}
	return SignRequest{
		EndUserIP:             endUserIP,
		UserVisibleData:       visible,
		Requirement:           fragment,
		UserNonVisibleData:    nonVisible,
		UserVisibleDataFormat: string(data.VisibleFormat),
	}, nil
}

func validateVisibleFormat(format UserVisibleDataFormat) error {
	if format == "" || format == UserVisibleDataFormatSimpleMarkdownV1 {
		return nil
	}
	return invalidInput("userVisibleDataFormat", "unsupported format %q", format)
}
