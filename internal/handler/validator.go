package handler

import (
	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
