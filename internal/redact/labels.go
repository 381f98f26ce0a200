package redact

import "github.com/lyndonlyu/secretshield/internal/secret"

// label returns the upper-case tag used by the placeholder and labeled
// styles. Absent and unknown types get SECRET.
func label(t secret.Type) string {
	switch t {
	case secret.TypeOpenAIKey:
		return "OPENAI_API_KEY"
	case secret.TypeGitHubToken:
		return "GITHUB_TOKEN"
	case secret.TypeStripeKey:
		return "STRIPE_KEY"
	case secret.TypeAWSAccessKey:
		return "AWS_ACCESS_KEY"
	case secret.TypeAWSSecretKey:
		return "AWS_SECRET_KEY"
	case secret.TypeJWT:
		return "JWT_TOKEN"
	case secret.TypePrivateKey:
		return "PRIVATE_KEY"
	case secret.TypeDatabaseURL:
		return "DATABASE_URL"
	case secret.TypeGenericAPIKey:
		return "API_KEY"
	}
	return "SECRET"
}
