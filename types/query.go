package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type AskParams struct {
	DocID    string `json:"docId" validate:"required"`
	Question string `json:"question" validate:"required"`
}

type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

type UploadResponse struct {
	DocID     string `json:"docId"`
	Filename  string `json:"filename"`
	PageCount int    `json:"pageCount"`
}

type DebugResponse struct {
	Exists bool   `json:"exists"`
	Path   string `json:"path"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *AskParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
