package secret

import (
	"iter"
	"regexp"
)

// Pattern is one entry of the catalog. Patterns are built once at package
// init and never mutated.
type Pattern struct {
	Type        Type
	Description string
	Confidence  float64

	re   *regexp.Regexp
	rank int
}

// Match is the byte range of one regex hit.
type Match struct {
	Start int
	End   int
}

// Expr returns the source of the compiled expression.
func (p Pattern) Expr() string {
	return p.re.String()
}

// Matches yields every non-overlapping match of the pattern in text, left to
// right. The sequence holds no state between iterations, so it may be ranged
// over any number of times.
func (p Pattern) Matches(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if !yield(Match{Start: loc[0], End: loc[1]}) {
				return
			}
		}
	}
}

// catalog is ordered most-specific first. Order only matters for tie-breaks.
var catalog = []Pattern{
	{
		Type:        TypeOpenAIKey,
		Description: "OpenAI API Key",
		Confidence:  0.95,
		re:          regexp.MustCompile(`sk-[a-zA-Z0-9]{48}`),
	},
	{
		Type:        TypeOpenAIKey,
		Description: "OpenAI Project API Key",
		Confidence:  0.95,
		re:          regexp.MustCompile(`sk-proj-[a-zA-Z0-9\-_]{48,}`),
	},
	{
		Type:        TypeGitHubToken,
		Description: "GitHub Personal Access Token",
		Confidence:  0.95,
		re:          regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`),
	},
	{
		Type:        TypeGitHubToken,
		Description: "GitHub OAuth Token",
		Confidence:  0.95,
		re:          regexp.MustCompile(`gho_[a-zA-Z0-9]{36}`),
	},
	{
		Type:        TypeGitHubToken,
		Description: "GitHub App Token",
		Confidence:  0.95,
		re:          regexp.MustCompile(`ghs_[a-zA-Z0-9]{36}`),
	},
	{
		Type:        TypeStripeKey,
		Description: "Stripe Secret Key (Live)",
		Confidence:  0.95,
		re:          regexp.MustCompile(`sk_live_[a-zA-Z0-9]{24,}`),
	},
	{
		Type:        TypeStripeKey,
		Description: "Stripe Secret Key (Test)",
		Confidence:  0.9,
		re:          regexp.MustCompile(`sk_test_[a-zA-Z0-9]{24,}`),
	},
	{
		Type:        TypeStripeKey,
		Description: "Stripe Publishable Key (Live)",
		Confidence:  0.8,
		re:          regexp.MustCompile(`pk_live_[a-zA-Z0-9]{24,}`),
	},
	{
		Type:        TypeAWSAccessKey,
		Description: "AWS Access Key ID",
		Confidence:  0.95,
		re:          regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	},
	{
		Type:        TypeAWSSecretKey,
		Description: "AWS Secret Access Key",
		Confidence:  0.95,
		re:          regexp.MustCompile(`(?:aws_secret_access_key|AWS_SECRET_ACCESS_KEY)[\s:=]+([a-zA-Z0-9+/]{40})`),
	},
	{
		Type:        TypeJWT,
		Description: "JWT Token",
		Confidence:  0.9,
		re:          regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{10,}\.eyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}`),
	},
	{
		Type:        TypePrivateKey,
		Description: "Private Key",
		Confidence:  1.0,
		re:          regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----[\s\S]*?-----END (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`),
	},
	{
		Type:        TypeDatabaseURL,
		Description: "Database Connection URL",
		Confidence:  0.95,
		re:          regexp.MustCompile(`(?i)(?:postgres|postgresql|mysql|mongodb|redis)://[^\s"']+:[^\s"']+@[^\s"']+`),
	},
	{
		Type:        TypeGenericAPIKey,
		Description: "Environment Variable Key Pattern",
		Confidence:  0.85,
		re:          regexp.MustCompile(`(?:API_KEY|ACCESS_KEY|[A-Z_]*_KEY)\s*[:=]\s*['"]([a-zA-Z0-9_\-]{8,})['"]?`),
	},
	{
		Type:        TypeGenericAPIKey,
		Description: "Exported Environment Variable Key",
		Confidence:  0.85,
		re:          regexp.MustCompile(`export\s+(?:API_KEY|ACCESS_KEY|[A-Z_]*_KEY)\s*=\s*['"]?([a-zA-Z0-9_\-]{8,})['"]?`),
	},
	{
		Type:        TypeGenericAPIKey,
		Description: "Generic API Key",
		Confidence:  0.7,
		re:          regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api[_-]?secret|access[_-]?token)[\s:=]+['"]?([a-zA-Z0-9_\-]{32,})['"]?`),
	},
	{
		// Quoted values may contain spaces (passphrases); bare values may not.
		Type:        TypeGenericSecret,
		Description: "Generic Secret",
		Confidence:  0.6,
		re:          regexp.MustCompile(`(?i)(?:password|passwd|pwd|secret|token)[\s:=]+(?:"[^"\r\n]{12,}"|'[^'\r\n]{12,}'|['"]?[a-zA-Z0-9!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]{12,}['"]?)`),
	},
}

func init() {
	for i := range catalog {
		catalog[i].rank = i
	}
}

// Catalog returns a copy of every defined pattern in catalog order.
func Catalog() []Pattern {
	out := make([]Pattern, len(catalog))
	copy(out, catalog)
	return out
}

// PatternsFor returns the patterns active at the given sensitivity, in
// catalog order.
func PatternsFor(s Sensitivity) ([]Pattern, error) {
	floor, err := s.threshold()
	if err != nil {
		return nil, err
	}
	var out []Pattern
	for _, p := range catalog {
		if p.Confidence >= floor {
			out = append(out, p)
		}
	}
	return out, nil
}
