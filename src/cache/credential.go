package cache

import "os"

// Credential authenticates against the remote binary cache.
type Credential struct {
	Endpoint string
	Token    string
}

// CredentialFromEnv reads the bearer token from the named environment
// variable. A missing or empty variable returns nil: publication is
// skipped, which is a first-class outcome and never an error. An empty
// credential is filtered out here and never reaches Authenticate.
func CredentialFromEnv(endpoint, tokenEnv string) *Credential {
	token := os.Getenv(tokenEnv)
	if token == "" || endpoint == "" {
		return nil
	}
	return &Credential{Endpoint: endpoint, Token: token}
}
