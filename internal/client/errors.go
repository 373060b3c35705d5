package client

// ValidationError is a local guard failure. It is raised before any request
// is made, so the server never sees input the client already knows is bad.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RequestError carries the server's error message verbatim along with the
// HTTP status it arrived with.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}
