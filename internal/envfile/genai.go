package envfile

import "strings"

// VirtualizerBasePath is the proxy route to the virtualizer service.
const VirtualizerBasePath = "/service/virtualizer"

// Settings are the values discovered by the env command.
type Settings struct {
	// ProxyURL is the normalised https://host:port of the developer proxy.
	ProxyURL string

	ServiceName string
	Tenant      string

	ClientCert string
	ClientKey  string
	CACert     string
}

// GenAIEnv builds the connection settings for the GenAI API, the gateway, local Vault
// bypass and the virtualizer, in that order.
func GenAIEnv(s Settings) *File {
	proxyURL := strings.TrimSuffix(s.ProxyURL, "/")

	f := &File{}
	f.Set("GENAI_API_SERVICE_NAME", s.ServiceName).
		Set("GENAI_API_TENANT", s.Tenant).
		Set("GENAI_API_REST_URL", proxyURL+"/service/genai-api").
		SetRaw("GENAI_API_REST_USE_SSL", "true").
		Set("GENAI_API_REST_CLIENT_CERT", s.ClientCert).
		Set("GENAI_API_REST_CLIENT_KEY", s.ClientKey).
		Set("GENAI_API_REST_CA_CERTS", s.CACert).
		Blank()

	f.Set("GENAI_GATEWAY_URL", proxyURL+"/service/genai-gateway").
		SetRaw("GENAI_GATEWAY_USE_SSL", "true").
		Set("GENAI_GATEWAY_CLIENT_CERT", s.ClientCert).
		Set("GENAI_GATEWAY_CLIENT_KEY", s.ClientKey).
		Set("GENAI_GATEWAY_CA_CERTS", s.CACert).
		Blank()

	f.Set("VAULT_LOCAL_CLIENT_CERT", s.ClientCert).
		Set("VAULT_LOCAL_CLIENT_KEY", s.ClientKey).
		Set("VAULT_LOCAL_CA_CERTS", s.CACert).
		Blank()

	f.Set("VIRTUALIZER_BASE_PATH", VirtualizerBasePath)

	return f
}
