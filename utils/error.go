package utils

import "errors"

var ErrorInvalidRequest = errors.New("invalid request")
