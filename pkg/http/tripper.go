package http

import "net/http"

type (
	// Constructor wraps a round tripper with additional behaviour.
	Constructor func(http.RoundTripper) http.RoundTripper

	// RoundTripperFunc adapts a function to http.RoundTripper.
	RoundTripperFunc func(*http.Request) (*http.Response, error)

	// Chain is an immutable list of round tripper constructors.
	Chain struct {
		constructors []Constructor
	}
)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func NewChain(constructors ...Constructor) Chain {
	return Chain{append([]Constructor(nil), constructors...)}
}

// Then builds the final round tripper, NewChain(m1, m2).Then(t) is m1(m2(t)).
// A nil transport means http.DefaultTransport.
func (c Chain) Then(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}

	for i := range c.constructors {
		rt = c.constructors[len(c.constructors)-1-i](rt)
	}

	return rt
}

// Append returns a new chain, the receiver is left untouched.
func (c Chain) Append(constructors ...Constructor) Chain {
	newCons := make([]Constructor, 0, len(c.constructors)+len(constructors))
	newCons = append(newCons, c.constructors...)
	newCons = append(newCons, constructors...)

	return Chain{newCons}
}
