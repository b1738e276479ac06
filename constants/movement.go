package constants

import (
	"strings"
)

// MovementType is the kind of distribution recorded for an owner.
type MovementType string

const (
	Retiro    MovementType = "retiro"
	Remesa    MovementType = "remesa"
	Dividendo MovementType = "dividendo"
)

var allMovementTypes = []MovementType{
	Retiro,
	Remesa,
	Dividendo,
}

// MovementTypes returns the stored values in display order.
func MovementTypes() []string {
	result := make([]string, len(allMovementTypes))
	for i, t := range allMovementTypes {
		result[i] = string(t)
	}
	return result
}

// CanonicalizeMovementType maps free text ("Retiros", " DIVIDENDO ") to a type.
func CanonicalizeMovementType(input string) (MovementType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Retiro, false
	}

	synonyms := map[string]MovementType{
		"retiros":    Retiro,
		"ret":        Retiro,
		"remesas":    Remesa,
		"rem":        Remesa,
		"dividendos": Dividendo,
		"div":        Dividendo,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allMovementTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return Retiro, false
}

// AttributionCode is the tax imputation bucket of a movement.
type AttributionCode string

const (
	RAI          AttributionCode = "RAI"  // rentas afectas a impuestos
	DDAN         AttributionCode = "DDAN" // devolución de capital
	REX          AttributionCode = "REX"  // rentas exentas
	INR          AttributionCode = "INR"  // ingresos no renta
	SAC          AttributionCode = "SAC"  // saldo acumulado de créditos
	Unclassified AttributionCode = "SIN CLASIFICAR"
)

var allAttributionCodes = []AttributionCode{RAI, DDAN, REX, INR, SAC, Unclassified}

// AttributionCodes returns every code including the unclassified marker.
func AttributionCodes() []string {
	result := make([]string, len(allAttributionCodes))
	for i, c := range allAttributionCodes {
		result[i] = string(c)
	}
	return result
}

// ParseAttributionCode accepts any case; unknown input is reported as Unclassified.
func ParseAttributionCode(input string) (AttributionCode, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	for _, c := range allAttributionCodes {
		if normalized == string(c) {
			return c, true
		}
	}
	return Unclassified, false
}
