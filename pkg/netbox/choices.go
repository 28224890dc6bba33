package netbox

import (
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

// CableTypes mirrors dcim.choices.CableTypeChoices.
var CableTypes = []string{
	"cat3", "cat5", "cat5e", "cat6", "cat6a", "cat7", "cat7a", "cat8",
	"mrj21-trunk", "dac-active", "dac-passive", "coaxial",
	"rg-6", "rg-8", "rg-11", "rg-59", "rg-62", "rg-213", "lmr-100", "lmr-200", "lmr-400",
	"mmf", "mmf-om1", "mmf-om2", "mmf-om3", "mmf-om4", "mmf-om5",
	"smf", "smf-os1", "smf-os2",
	"aoc", "power", "usb",
}

// CableLengthUnits mirrors dcim.choices.CableLengthUnitChoices.
var CableLengthUnits = []string{"km", "m", "cm", "mi", "ft", "in"}

const (
	ModuleStatusActive = "active"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator() returns the shared validator with NetBox choice tags
// registered: 'cabletype' and 'lengthunit'.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("cabletype", choiceValidator(CableTypes))
		_ = validate.RegisterValidation("lengthunit", choiceValidator(CableLengthUnits))
	})
	return validate
}

// Validate() runs struct tag validation on v.
func Validate(v any) error {
	return Validator().Struct(v)
}

func choiceValidator(choices []string) validator.Func {
	sorted := append([]string(nil), choices...)
	sort.Strings(sorted)
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		i := sort.SearchStrings(sorted, v)
		return i < len(sorted) && sorted[i] == v
	}
}
