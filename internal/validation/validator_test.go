package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

type settingsForm struct {
	IconURL        string `json:"icon_url" validate:"omitempty,url"`
	CustomName     string `json:"custom_name" validate:"max=10"`
	PrimaryColor   string `json:"primary_color" validate:"required,rgbhex"`
	SecondaryColor string `json:"secondary_color,omitempty" validate:"omitempty,rgbhex"`
	Cost           string `json:"cost" validate:"money"`
	Quantity       int    `json:"quantity" validate:"gte=0"`
}

func valid() settingsForm {
	return settingsForm{
		IconURL:        "https://img.example.com/icon.png",
		CustomName:     "Tiki Nook",
		PrimaryColor:   "#222222",
		SecondaryColor: "#F0984E",
		Cost:           "29.99",
		Quantity:       1,
	}
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(valid()))

	form := valid()
	form.Cost = ""
	form.IconURL = ""
	form.SecondaryColor = ""
	assert.NoError(t, v.Validate(form))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		mutate  func(*settingsForm)
		field   string
		message string
	}{
		{name: "short color", mutate: func(f *settingsForm) { f.PrimaryColor = "#222" }, field: "primary_color", message: "must be a color like #f0984e"},
		{name: "named color", mutate: func(f *settingsForm) { f.SecondaryColor = "orange" }, field: "secondary_color", message: "must be a color like #f0984e"},
		{name: "missing color", mutate: func(f *settingsForm) { f.PrimaryColor = "" }, field: "primary_color", message: "is required"},
		{name: "bad url", mutate: func(f *settingsForm) { f.IconURL = "not a url" }, field: "icon_url", message: "must be a valid URL"},
		{name: "long name", mutate: func(f *settingsForm) { f.CustomName = "The Velvet Room Bar" }, field: "custom_name", message: "must not exceed 10 characters"},
		{name: "negative cost", mutate: func(f *settingsForm) { f.Cost = "-1" }, field: "cost", message: "must be a non-negative amount"},
		{name: "text cost", mutate: func(f *settingsForm) { f.Cost = "cheap" }, field: "cost", message: "must be a non-negative amount"},
		{name: "negative quantity", mutate: func(f *settingsForm) { f.Quantity = -1 }, field: "quantity", message: "must be greater than or equal to 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid()
			tt.mutate(&form)

			err := v.Validate(form)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.message, details[tt.field])
		})
	}
}
