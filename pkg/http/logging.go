package http

import (
	"net/http"

	"github.com/klwxsrx/storefront-console/pkg/log"
)

const requestLogEntry = "request"

func getRequestFieldsLogger(r *http.Request, logger log.Logger) log.Logger {
	return logger.With(wrapFieldsWithRequestLogEntry(log.Fields{
		"method": r.Method,
		"host":   r.URL.Host,
		"path":   r.URL.Path,
	}))
}

func getRequestResponseFieldsLogger(r *http.Request, code int, logger log.Logger) log.Logger {
	if r == nil {
		return logger.With(wrapFieldsWithRequestLogEntry(log.Fields{"code": code}))
	}

	return getRequestFieldsLogger(r, logger).With(wrapFieldsWithRequestLogEntry(log.Fields{
		"code": code,
	}))
}

func wrapFieldsWithRequestLogEntry(fields log.Fields) log.Fields {
	result := make(log.Fields, len(fields))
	for key, value := range fields {
		result[requestLogEntry+"."+key] = value
	}

	return result
}
