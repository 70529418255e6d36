package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	Description *string  `json:"description" validate:"required_on_create,omitempty,max=10"`
	Quantity    *float64 `json:"quantity" validate:"required_on_create,omitempty,gt=0"`
}

type sampleInput struct {
	Name  *string     `json:"name" validate:"required_on_create,omitempty,max=5"`
	Email *string     `json:"email" validate:"omitempty,email"`
	Role  *string     `json:"role" validate:"omitempty,oneof=admin staff"`
	Lines []lineInput `json:"lines" validate:"omitempty,min=1,dive"`
}

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func TestValidatePayload_CreateRequiresFields(t *testing.T) {
	err := ValidatePayload(context.Background(), &sampleInput{}, true)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The name field is required."}, ve.Fields["name"])
	assert.Len(t, ve.Fields, 1)
}

func TestValidatePayload_UpdateSkipsAbsentFields(t *testing.T) {
	require.NoError(t, ValidatePayload(context.Background(), &sampleInput{}, false))
}

func TestValidatePayload_ProvidedBlankStringFails(t *testing.T) {
	err := ValidatePayload(context.Background(), &sampleInput{Name: str("   ")}, false)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")
}

func TestValidatePayload_Rules(t *testing.T) {
	in := &sampleInput{
		Name:  str("too long name"),
		Email: str("not-an-email"),
		Role:  str("owner"),
	}
	err := ValidatePayload(context.Background(), in, true)
	ve, ok := AsValidationError(err)
	require.True(t, ok)

	assert.Equal(t, []string{"The name field must not be greater than 5 characters."}, ve.Fields["name"])
	assert.Equal(t, []string{"The email field must be a valid email address."}, ve.Fields["email"])
	assert.Equal(t, []string{"The selected role is invalid."}, ve.Fields["role"])
}

func TestValidatePayload_NestedPaths(t *testing.T) {
	in := &sampleInput{
		Name:  str("ok"),
		Lines: []lineInput{{Description: str("fine"), Quantity: num(1)}, {Description: str("fine"), Quantity: num(0)}},
	}
	err := ValidatePayload(context.Background(), in, true)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The quantity field must be greater than 0."}, ve.Fields["lines.1.quantity"])

	in.Lines = []lineInput{}
	err = ValidatePayload(context.Background(), in, true)
	ve, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The lines field must have at least 1 items."}, ve.Fields["lines"])
}

func TestValidatePayload_MaxBytesCountsBytes(t *testing.T) {
	type secretInput struct {
		Secret *string `json:"secret" validate:"omitempty,max_bytes=8"`
	}

	require.NoError(t, ValidatePayload(context.Background(), &secretInput{Secret: str("éééé")}, true))

	err := ValidatePayload(context.Background(), &secretInput{Secret: str("ééééé")}, true)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The secret field must not be greater than 8 bytes."}, ve.Fields["secret"])
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "name", fieldPath("ProductPayload.name"))
	assert.Equal(t, "items.0.unit_price", fieldPath("EstimatePayload.items[0].unit_price"))
}

func TestValidationError(t *testing.T) {
	ve := NewValidationError("email", "taken")
	ve.Add("email", "invalid")
	ve.Add("name", "required")
	assert.True(t, ve.HasErrors())
	assert.Equal(t, "validation failed: email, name", ve.Error())
	assert.Len(t, ve.Fields["email"], 2)

	var empty *ValidationError
	assert.False(t, empty.HasErrors())
}
