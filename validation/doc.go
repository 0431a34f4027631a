// Package validation validates structured objects and configuration values.
//
// Structured objects are plain Go structs whose schema is expressed with
// `json` and `validate` struct tags (go-playground/validator). They play the
// role of schema-validated models: request bodies are validated before they
// are exported, response bodies after they are decoded.
//
//	type User struct {
//	    Name string `json:"name" validate:"required"`
//	    Age  int    `json:"age" validate:"gte=0"`
//	}
//	err := validation.Validate(user)
//
// Programmatic checks collect field errors and report them as one AppError:
//
//	v := validation.New()
//	v.Required("base_url", cfg.BaseURL)
//	err := v.Validate()
package validation
