// Package kvslog builds the *zap.SugaredLogger handed to every
// component that logs (internal/server, internal/pool, internal/engine
// callers), following ignite's pattern of injecting a SugaredLogger
// rather than each package constructing its own.
package kvslog

import "go.uber.org/zap"

// New builds a development logger (human-readable console output,
// stacktraces on warn+) when debug is true, otherwise a
// production logger (JSON, sampled, no stacktraces below error).
func New(debug bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
