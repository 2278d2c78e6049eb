package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type window struct {
	Day   int    `validate:"min=0,max=6"`
	Start string `validate:"required,hhmm"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(window{Day: 2, Start: "09:00"}))

	errs := Validate(window{Day: 7, Start: "9am"})
	assert.Equal(t, "max", errs["window.Day"])
	assert.Equal(t, "hhmm", errs["window.Start"])
}
