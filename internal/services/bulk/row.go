package bulk

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/rut"
)

// Row is one upload line after column mapping.
type Row struct {
	CompanyRUT   string `col:"rut_empresa" validate:"required,rut"`
	BusinessName string `col:"razon_social" validate:"max=255"`
	OwnerRUT     string `col:"rut_propietario" validate:"required,rut"`
	OwnerName    string `col:"nombre_propietario" validate:"max=255"`
	Date         string `col:"fecha" validate:"required"`
	Type         string `col:"tipo_calificacion" validate:"required,oneof=retiro remesa dividendo"`
	Amount       string `col:"monto" validate:"required"`
	Adjusted     string `col:"monto_reajustado"`
	Attribution  string `col:"imputacion" validate:"omitempty,oneof=RAI DDAN REX INR SAC"`
	Status       string `col:"estado" validate:"omitempty,oneof=vigente pendiente anulado"`
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "2006/01/02"}

var reThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("col") })
	_ = v.RegisterValidation("rut", func(fl validator.FieldLevel) bool {
		_, err := rut.Validate(fl.Field().String())
		return err == nil
	})
	return v
}

func rowFromMap(m map[string]string) Row {
	r := Row{
		CompanyRUT:   m["rut_empresa"],
		BusinessName: m["razon_social"],
		OwnerRUT:     m["rut_propietario"],
		OwnerName:    m["nombre_propietario"],
		Date:         m["fecha"],
		Type:         m["tipo_calificacion"],
		Amount:       m["monto"],
		Adjusted:     m["monto_reajustado"],
		Attribution:  strings.ToUpper(m["imputacion"]),
		Status:       strings.ToLower(m["estado"]),
	}
	if t, ok := constants.CanonicalizeMovementType(r.Type); ok {
		r.Type = string(t)
	}
	if r.Attribution == string(constants.Unclassified) {
		r.Attribution = ""
	}
	return r
}

// describe turns validator failures into "field reason" phrases.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		var reason string
		switch fe.Tag() {
		case "required":
			reason = "is required"
		case "rut":
			reason = fmt.Sprintf("%q is not a valid RUT", fe.Value())
		case "oneof":
			reason = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "max":
			reason = "must be at most " + fe.Param() + " characters"
		default:
			reason = "failed " + fe.Tag()
		}
		parts = append(parts, fe.Field()+" "+reason)
	}
	return strings.Join(parts, "; ")
}

// ParseAmount reads whole peso amounts: "1.500.000", "$ 1500000",
// "1500000,00". Fractions and non-positive values are rejected.
func ParseAmount(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", " ", "").Replace(strings.TrimSpace(s))
	switch {
	case reThousands.MatchString(clean):
		clean = strings.ReplaceAll(clean, ".", "")
	case strings.Contains(clean, ","):
		clean = strings.ReplaceAll(strings.ReplaceAll(clean, ".", ""), ",", ".")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("monto %q is not a number", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("monto %q has a fractional part", s)
	}
	if d.Sign() <= 0 {
		return 0, fmt.Errorf("monto %q must be greater than zero", s)
	}
	return d.IntPart(), nil
}

// ParseRowDate accepts the upload date layouts and Excel serial dates.
func ParseRowDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha %q is not a valid date", s)
}
