package common

import "errors"

var (
	ErrorInvalidValue   = errors.New("invalid value")
	ErrorInvalidConfig  = errors.New("invalid config")
	ErrorDegenerateGrid = errors.New("degenerate candidate grid")
	ErrorSingularDesign = errors.New("singular design matrix")
)
