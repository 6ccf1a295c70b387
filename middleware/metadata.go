package middleware

import (
	"encoding/json"
	"net/http"
)

// ResourceMetadata is the OAuth protected resource metadata document served
// at /.well-known/oauth-protected-resource. Clients that receive a 401 with
// a resource_metadata challenge fetch it to discover the authorization
// server.
type ResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// ProtectedResourceMetadataHandler serves the metadata document with
// permissive CORS so browser-based clients can read it cross-origin.
func ProtectedResourceMetadataHandler(meta ResourceMetadata) http.Handler {
	if len(meta.BearerMethodsSupported) == 0 {
		meta.BearerMethodsSupported = []string{"header"}
	}

	body, err := json.Marshal(meta)
	if err != nil {
		// Only reachable with non-marshalable fields, which the struct
		// does not have.
		body = []byte("{}")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "public, max-age=3600")
			_, _ = w.Write(body)
		default:
			w.Header().Set("Allow", "GET, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
