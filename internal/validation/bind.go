package validation

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return err
	}
	return Validate(c, out, v)
}

// Validate runs validation on an already bound value and writes a 400 on failure.
func Validate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "missing_order",
			"fields": validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

// DecodeAndValidate is BindAndValidate for queue payloads.
func DecodeAndValidate(body []byte, out interface{}, v *validatorv10.Validate) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := v.Struct(out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// Fields flattens validation errors to field -> message.
func Fields(err error) map[string]string { return validationErrorsToMap(err) }

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
