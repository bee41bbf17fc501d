package validator

import (
	"log"

	"tradeup_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules installs domain-specific validation tags.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'is-stage-action': a lifecycle action name
	mustRegister("is-stage-action", validateStageAction)

	// 'is-deal-role': buyer or seller
	mustRegister("is-deal-role", validateDealRole)
}

func validateStageAction(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' handles empty values
	}
	switch value {
	case "ready", "build_contract", "agree_contract", "load_money", "final_green_light":
		return true
	default:
		return false
	}
}

func validateDealRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.DealRole(value) {
	case models.DealRoleBuyer, models.DealRoleSeller:
		return true
	default:
		return false
	}
}
