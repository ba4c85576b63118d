package middleware

import (
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
)

type Middleware struct {
	log logger.Logger
}

func NewMiddleware(log logger.Logger) *Middleware {
	return &Middleware{
		log: log,
	}
}
