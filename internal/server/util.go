package server

import (
	"net/url"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-Id"

// rewriteRequest restores the original request from the X-Forwarded-*
// headers a reverse proxy sends along, so the API key is looked up in the
// original query string.
func rewriteRequest(c *gin.Context) {
	logForwardedHeaders(c)
	if proto := c.Request.Header.Get("X-Forwarded-Proto"); proto != "" {
		c.Request.URL.Scheme = proto
	}
	if method := c.Request.Header.Get("X-Forwarded-Method"); method != "" {
		c.Request.Method = method
	}
	if host := c.Request.Header.Get("X-Forwarded-Host"); host != "" {
		c.Request.URL.Host = host
	}
	if uri := c.Request.Header.Get("X-Forwarded-Uri"); uri != "" {
		parsed, err := url.ParseRequestURI(uri)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring unparsable X-Forwarded-Uri")
			return
		}
		parsed.Scheme = c.Request.URL.Scheme
		parsed.Host = c.Request.URL.Host
		c.Request.URL = parsed
	}
}

func logForwardedHeaders(c *gin.Context) {
	log.Trace().
		Str("X-Forwarded-Proto", c.Request.Header.Get("X-Forwarded-Proto")).
		Str("X-Forwarded-Method", c.Request.Header.Get("X-Forwarded-Method")).
		Str("X-Forwarded-Host", c.Request.Header.Get("X-Forwarded-Host")).
		Str("X-Forwarded-Uri", c.Request.Header.Get("X-Forwarded-Uri")).
		Msg("forwarded header")
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			var err error
			id, err = gonanoid.New(21)
			if err != nil {
				log.Error().Err(err).Msg("failed to generate request id")
			}
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs path and status only; the query string may carry keys.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Trace().
			Str("request_id", c.GetString(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("remote_addr", c.ClientIP()).
			Msg("request")
	}
}
