package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/techradar/internal/domain/model"
)

var (
	validateOnce sync.Once          //nolint:gochecknoglobals // lazily built validator
	validateInst *validator.Validate //nolint:gochecknoglobals // shared, safe for concurrent use
)

// validatorInstance returns the shared validator. Field names in errors
// follow the json tags and the "ring" tag accepts the four rings in any case.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("ring", func(fl validator.FieldLevel) bool {
			_, err := model.ParseRing(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validateInst = v
	})
	return validateInst
}

// validate checks dst's struct tags and reports the first failing field.
func validate(dst any) error {
	err := validatorInstance().Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return wrap(ErrBadRequest, fmt.Errorf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return wrap(ErrBadRequest, err)
}
