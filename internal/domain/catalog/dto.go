package catalog

import (
	"strings"
)

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func (r CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
