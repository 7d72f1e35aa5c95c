package sms

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// SendSMSRequest asks for a templated message to one phone.
type SendSMSRequest struct {
	Phone       string            `json:"phone" validate:"required,min=10,max=20"`
	TemplateKey string            `json:"templateKey" validate:"required"`
	Variables   map[string]string `json:"variables"`
}

func (req *SendSMSRequest) Validate() error {
	return validate.Struct(req)
}

type SendSMSResponse struct {
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

// TemplateView is a catalogue entry with its body rendered against sample values.
type TemplateView struct {
	Key       string   `json:"key"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Purpose   string   `json:"purpose"`
	Variables []string `json:"variables"`
	Template  string   `json:"template"`
	Preview   string   `json:"preview"`
}

type TemplatesResponse struct {
	Templates []TemplateView `json:"templates"`
}
