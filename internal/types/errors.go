package types

import "errors"

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrStageFailure    = errors.New("pipeline stage failure")
	ErrMissingArtifact = errors.New("missing artifact")
	ErrParse           = errors.New("parse error")
	ErrIO              = errors.New("io failure")
	ErrNoInputs        = errors.New("no processable inputs")
)
