package devproxy

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// GenAIAPIService is the registry key of the GenAI API backend.
const GenAIAPIService = "genai-api"

var (
	// ErrInvalidRegistry is returned when the proxy body is not a service registry.
	ErrInvalidRegistry = errors.New("invalid service registry")

	// ErrServiceNotFound is returned when a service is absent from the registry.
	ErrServiceNotFound = errors.New("service not found in registry")

	// ErrInvalidServiceName is returned when a hostname does not follow <service>.<tenant>-<suffix>.
	ErrInvalidServiceName = errors.New("invalid service name")
)

// Service is one backend exposed through the developer proxy.
type Service struct {
	Enabled     bool   `json:"enabled"`
	InternalURL string `json:"internal_url"`
}

// Registry is the body returned by GET / on the developer proxy.
type Registry struct {
	Message  string             `json:"message,omitempty"`
	Services map[string]Service `json:"services"`
}

// EnabledServices returns the names of enabled services, sorted.
func (r *Registry) EnabledServices() []string {
	var names []string
	for name, svc := range r.Services {
		if svc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ServiceHost returns the hostname of the named service's internal URL.
func (r *Registry) ServiceHost(name string) (string, error) {
	svc, ok := r.Services[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	u, err := url.Parse(svc.InternalURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s internal url %q: %v", ErrInvalidRegistry, name, svc.InternalURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %s internal url %q has no host", ErrInvalidRegistry, name, svc.InternalURL)
	}

	return u.Hostname(), nil
}

// ServiceName is a Kubernetes style service hostname such as genai-api.t1-genai.
type ServiceName struct {
	Host   string
	Tenant string
}

func (s ServiceName) String() string {
	return s.Host
}

// ParseServiceName extracts the tenant from host, which is the second dot separated
// label up to its first dash: genai-api.t1-genai has tenant t1.
func ParseServiceName(host string) (ServiceName, error) {
	labels := strings.Split(host, ".")
	if len(labels) < 2 || labels[1] == "" {
		return ServiceName{}, fmt.Errorf("%w: %q", ErrInvalidServiceName, host)
	}

	tenant, _, _ := strings.Cut(labels[1], "-")
	if tenant == "" {
		return ServiceName{}, fmt.Errorf("%w: %q has no tenant", ErrInvalidServiceName, host)
	}

	return ServiceName{Host: host, Tenant: tenant}, nil
}
