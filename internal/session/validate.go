package session

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("servicename", func(fl validator.FieldLevel) bool {
		return models.ValidServiceName(fl.Field().String())
	})
}

type serviceName struct {
	Name string `validate:"required,servicename"`
}

type newService struct {
	Name  string `validate:"required,servicename"`
	Image string `validate:"required"`
}

// ValidateName checks a service name against the compose name grammar
func ValidateName(name string) error {
	if err := validate.Struct(serviceName{Name: name}); err != nil {
		return invalid(name, fmt.Errorf("%w: must match %s", ErrInvalidName, models.ServiceNamePattern))
	}
	return nil
}

func validateNewService(name string, cfg models.NewServiceConfig) error {
	err := validate.Struct(newService{Name: name, Image: cfg.Image})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && verrs[0].Field() == "Image" {
		return invalid(name, fmt.Errorf("%w: image is required", ErrInvalidConfig))
	}
	return invalid(name, fmt.Errorf("%w: must match %s", ErrInvalidName, models.ServiceNamePattern))
}
