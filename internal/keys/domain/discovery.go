package domain

// JSONWebKey is a public RSA signing key in JWK form (RFC 7517).
type JSONWebKey struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// DiscoveryDocument is the JWKS served to verifiers. It always holds exactly one key.
type DiscoveryDocument struct {
	Keys []JSONWebKey `json:"keys"`
}
