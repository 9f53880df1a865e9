package handler

import (
	"net/http"
	"reflect"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError writes a domain error as {detail, kind} with its mapped
// status. Anything else is handed to middleware.ErrorHandler, which logs it
// and answers a generic 500.
func respondError(c *gin.Context, err error) {
	if e, ok := apierror.As(err); ok {
		c.JSON(apierror.Status(e.Kind), apierror.APIError{Detail: e.Message, Kind: e.Kind})
		return
	}
	_ = c.Error(err)
}

func operador(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.Operador()
	}
	return ""
}

func parseUUID(c *gin.Context, raw, campo string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(campo+" inválido"))
		return uuid.Nil, false
	}
	return id, true
}
