// Package secret holds the pattern catalog and the detector that turns raw
// text into secret occurrences with byte offsets.
package secret

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when an enum value such as a
// sensitivity tier or redaction style is not recognised.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Type tags a detected secret. The zero value means the type is absent.
type Type string

const (
	TypeOpenAIKey     Type = "openai_api_key"
	TypeGitHubToken   Type = "github_token"
	TypeStripeKey     Type = "stripe_key"
	TypeAWSAccessKey  Type = "aws_access_key"
	TypeAWSSecretKey  Type = "aws_secret_key"
	TypeJWT           Type = "jwt_token"
	TypePrivateKey    Type = "private_key"
	TypeDatabaseURL   Type = "database_url"
	TypeGenericAPIKey Type = "generic_api_key"
	TypeGenericSecret Type = "generic_secret"
)

// Types returns every declared secret type in declaration order.
func Types() []Type {
	return []Type{
		TypeOpenAIKey,
		TypeGitHubToken,
		TypeStripeKey,
		TypeAWSAccessKey,
		TypeAWSSecretKey,
		TypeJWT,
		TypePrivateKey,
		TypeDatabaseURL,
		TypeGenericAPIKey,
		TypeGenericSecret,
	}
}

// Sensitivity selects which patterns are active by confidence threshold.
type Sensitivity string

const (
	Strict   Sensitivity = "strict"
	Balanced Sensitivity = "balanced"
	Lenient  Sensitivity = "lenient"
)

// ParseSensitivity converts a settings string into a Sensitivity. An empty
// string yields Balanced.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(s) {
	case "":
		return Balanced, nil
	case Strict, Balanced, Lenient:
		return Sensitivity(s), nil
	}
	return "", fmt.Errorf("%w: unknown sensitivity %q", ErrInvalidConfiguration, s)
}

// threshold returns the minimum pattern confidence for the tier.
func (s Sensitivity) threshold() (float64, error) {
	switch s {
	case Strict:
		return 0, nil
	case Balanced:
		return 0.8, nil
	case Lenient:
		return 0.9, nil
	}
	return 0, fmt.Errorf("%w: unknown sensitivity %q", ErrInvalidConfiguration, string(s))
}

// Detected is a single occurrence of a secret in the scanned text. Start and
// End are half-open byte offsets into the original text.
type Detected struct {
	Type        Type    `json:"type"`
	Value       string  `json:"value"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Confidence  float64 `json:"confidence"`
	Context     string  `json:"context,omitempty"`
	Description string  `json:"description"`

	rank int
}

// Len returns the byte length of the matched value.
func (d Detected) Len() int {
	return d.End - d.Start
}

func (d Detected) overlaps(o Detected) bool {
	return d.Start < o.End && o.Start < d.End
}
