package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/bistro/pkg/errorbank"
)

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=delivered cancelled"`
}

func TestValidateReportsJSONField(t *testing.T) {
	err := New().Validate(&statusPayload{Status: "pending"})

	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindInvalidInput, appErr.Kind())
	assert.Equal(t, "status", appErr.Details()["field"])
	assert.Equal(t, "status must be one of delivered, cancelled", appErr.Message())
}

func TestValidateRequired(t *testing.T) {
	err := New().Validate(&statusPayload{})
	assert.Equal(t, "status is required", errorbank.From(err).Message())
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, New().Validate(&statusPayload{Status: "delivered"}))
}
