package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/models"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the category and label_language tags to gin's validator.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not validator/v10")
			return
		}
		if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.Category(strings.TrimSpace(fl.Field().String())).Valid()
		}); err != nil {
			registerErr = fmt.Errorf("register category validator: %w", err)
			return
		}
		if err := v.RegisterValidation("label_language", func(fl validator.FieldLevel) bool {
			return i18n.IsSupported(fl.Field().String())
		}); err != nil {
			registerErr = fmt.Errorf("register label_language validator: %w", err)
		}
	})
	return registerErr
}

func init() {
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

// bindError reports a request body that failed to bind, listing failed
// fields when validation produced them.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	apierrors.BadRequestWithDetails(c, "Validation failed", details)
}
