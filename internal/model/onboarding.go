package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// OnboardingInput is the payload for the onboarding workflow. It is validated
// at the workflow-start boundary so that a malformed request never creates a
// durable run.
type OnboardingInput struct {
	Email       string `json:"email" validate:"required,email"`
	KCSubject   string `json:"kc_subject" validate:"required"`
	FullName    string `json:"full_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	AccountName string `json:"account_name" validate:"required,min=1,max=63"`
}

func (in *OnboardingInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// OnboardingResult is the terminal view returned by a successful onboarding
// workflow: the user and the finalized account.
type OnboardingResult struct {
	User    User    `json:"user"`
	Account Account `json:"account"`
}
