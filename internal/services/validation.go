package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ticket-storefront/internal/models"
)

// checkoutMessages maps field and failed rule to the message shown to the
// customer
var checkoutMessages = map[string]map[string]string{
	"firstName": {
		"required": "Voornaam is verplicht",
		"max":      "Voornaam mag maximaal 255 karakters bevatten",
	},
	"lastName": {
		"required": "Achternaam is verplicht",
		"max":      "Achternaam mag maximaal 255 karakters bevatten",
	},
	"companyName": {
		"max": "Bedrijfsnaam mag maximaal 255 karakters bevatten",
	},
	"city": {
		"required": "Stad is verplicht",
		"max":      "Stad mag maximaal 255 karakters bevatten",
	},
	"phoneNumber": {
		"max": "Telefoonnummer mag maximaal 50 karakters bevatten",
	},
	"email": {
		"required": "E-mailadres is verplicht",
		"email":    "Voer een geldig e-mailadres in",
		"max":      "E-mailadres mag maximaal 255 karakters bevatten",
	},
	"emailConfirm": {
		"required": "E-mailbevestiging is verplicht",
		"email":    "Voer een geldig e-mailadres in voor bevestiging",
		"eqfield":  "E-mailadressen komen niet overeen",
	},
	"terms": {
		"eq": "Je moet akkoord gaan met de algemene voorwaarden",
	},
}

// FormValidator validates submitted forms and converts failures into
// field-level messages
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator creates a validator that reports fields by their JSON name
func NewFormValidator() *FormValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &FormValidator{validate: v}
}

// Checkout validates the checkout form. It returns a *models.ValidationError
// when any field fails.
func (v *FormValidator) Checkout(form *models.CheckoutForm) error {
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	form.CompanyName = strings.TrimSpace(form.CompanyName)
	form.City = strings.TrimSpace(form.City)
	form.PhoneNumber = strings.TrimSpace(form.PhoneNumber)
	form.Email = strings.TrimSpace(form.Email)
	form.EmailConfirm = strings.TrimSpace(form.EmailConfirm)

	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	result := &models.ValidationError{}
	for _, fe := range fieldErrors {
		result.Add(fe.Field(), messageFor(fe))
	}
	return result
}

func messageFor(fe validator.FieldError) string {
	if messages, ok := checkoutMessages[fe.Field()]; ok {
		if message, ok := messages[fe.Tag()]; ok {
			return message
		}
	}
	return "Ongeldige waarde"
}
