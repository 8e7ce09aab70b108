package validation

import (
	"context"
	"errors"
	"fmt"

	playground "github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

// personalInfo is the typed form of the personal-information step.
type personalInfo struct {
	Identity struct {
		FirstName   string `mapstructure:"firstName" validate:"required"`
		LastName    string `mapstructure:"lastName" validate:"required"`
		DateOfBirth string `mapstructure:"dateOfBirth" validate:"required"`
		SSN         string `mapstructure:"ssn" validate:"omitempty,len=11"`
	} `mapstructure:"identity"`
	EmergencyContact struct {
		Name  string `mapstructure:"name" validate:"required"`
		Phone string `mapstructure:"phone" validate:"required"`
	} `mapstructure:"emergencyContact"`
}

// directDeposit is the typed form of the payroll-setup step.
type directDeposit struct {
	AccountType   string `mapstructure:"accountType" validate:"required,oneof=checking savings"`
	RoutingNumber string `mapstructure:"routingNumber" validate:"required,len=9,numeric"`
	AccountNumber string `mapstructure:"accountNumber" validate:"required,min=4,max=17,numeric"`
}

// w4Form is the typed form of the tax-withholding step.
type w4Form struct {
	FilingStatus string `mapstructure:"filingStatus" validate:"required,oneof=single married head_of_household"`
	MultipleJobs bool   `mapstructure:"multipleJobs"`
	Signed       bool   `mapstructure:"signed" validate:"eq=true"`
}

// Validator checks step payloads against typed schemas. Steps without a
// registered schema pass: their payloads are opaque to the controller
// and validated by the rendering layer alone.
type Validator struct {
	validate *playground.Validate
	schemas  map[string]func() any
}

// NewValidator builds the validator with the default step schemas.
func NewValidator() *Validator {
	return &Validator{
		validate: playground.New(playground.WithRequiredStructEnabled()),
		schemas: map[string]func() any{
			"personal-info":  func() any { return &personalInfo{} },
			"direct-deposit": func() any { return &directDeposit{} },
			"w4-form":        func() any { return &w4Form{} },
		},
	}
}

// Register adds (or replaces) a typed schema for a step.
func (v *Validator) Register(stepID string, schema func() any) {
	v.schemas[stepID] = schema
}

// ValidateStep implements ports.StepValidator.
func (v *Validator) ValidateStep(ctx context.Context, stepID string, payload flow.StepData) ports.ValidationResult {
	newSchema, ok := v.schemas[stepID]
	if !ok {
		return ports.ValidationResult{Valid: true}
	}

	target := newSchema()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ports.ValidationResult{Errors: []string{err.Error()}}
	}
	if err := decoder.Decode(map[string]any(payload)); err != nil {
		return ports.ValidationResult{Errors: []string{fmt.Sprintf("malformed payload: %v", err)}}
	}

	if err := v.validate.StructCtx(ctx, target); err != nil {
		var verrs playground.ValidationErrors
		if errors.As(err, &verrs) {
			issues := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				issues = append(issues, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return ports.ValidationResult{Errors: issues}
		}
		return ports.ValidationResult{Errors: []string{err.Error()}}
	}

	return ports.ValidationResult{Valid: true}
}
