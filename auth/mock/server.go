package mock

import "net/http/httptest"

type HTTPTestBackend struct {
	*BackendService
	Server *httptest.Server
	URL    string
}

// NewHTTPTestBackend starts the backend on a local httptest server.
func NewHTTPTestBackend(opts ...Option) (*HTTPTestBackend, error) {
	service, err := NewBackendService(opts...)
	if err != nil {
		return nil, err
	}
	server := &HTTPTestBackend{
		BackendService: service,
	}
	server.Server = httptest.NewServer(service.Handler())
	server.URL = server.Server.URL
	return server, nil
}

func (s *HTTPTestBackend) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
	s.Server = nil
}
