package http

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-resty/resty/v2"
)

type Route struct {
	Method string
	URL    string
}

func (r Route) Name() string {
	path := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Latin, r) || unicode.IsDigit(r) {
			return r
		}

		if r == '{' || r == '}' {
			return -1
		}

		return '_'
	}, strings.Trim(r.URL, "/"))
	return fmt.Sprintf("%s_%s", strings.ToUpper(r.Method), path)
}

func (r Route) Send(req *resty.Request) (*resty.Response, error) {
	resp, err := req.Execute(r.Method, r.URL)
	if err != nil {
		return resp, fmt.Errorf("request %s: %w", r.Name(), err)
	}

	return resp, nil
}
