package sri

import (
	"fmt"
	"strconv"
	"unicode"
)

// coeficientes módulo 10 para la cédula ecuatoriana (Registro Civil).
var cedulaCoefficients = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}

// ValidateCedula valida una cédula de 10 dígitos: provincia 01-24 o 30,
// tercer dígito menor a 6 y dígito verificador módulo 10.
func ValidateCedula(id string) error {
	digits := extractDigits(id)
	if len(digits) != 10 || len(digits) != len(id) {
		return fmt.Errorf("sri: la cédula debe tener 10 dígitos, se recibió %q", id)
	}
	if err := validateProvince(digits); err != nil {
		return err
	}
	if digits[2] >= '6' {
		return fmt.Errorf("sri: tercer dígito de cédula inválido (%c)", digits[2])
	}
	var sum int
	for i, c := range cedulaCoefficients {
		p := int(digits[i]-'0') * c
		if p > 9 {
			p -= 9
		}
		sum += p
	}
	expected := (10 - sum%10) % 10
	if int(digits[9]-'0') != expected {
		return fmt.Errorf("sri: dígito verificador de cédula inválido: esperado %d, recibido %c", expected, digits[9])
	}
	return nil
}

// ValidateRUC valida la estructura del RUC: 13 dígitos, provincia válida,
// tercer dígito de persona natural (0-5), pública (6) o sociedad (9) y
// establecimiento distinto de 000. El dígito verificador sólo se comprueba
// para personas naturales: el SRI asigna RUC de sociedades que no cumplen
// el módulo 11 histórico.
func ValidateRUC(ruc string) error {
	digits := extractDigits(ruc)
	if len(digits) != 13 || len(digits) != len(ruc) {
		return fmt.Errorf("sri: el RUC debe tener 13 dígitos, se recibió %q", ruc)
	}
	if err := validateProvince(digits); err != nil {
		return err
	}
	third := digits[2]
	switch {
	case third < '6':
		if err := ValidateCedula(string(digits[:10])); err != nil {
			return fmt.Errorf("sri: RUC de persona natural: %w", err)
		}
	case third == '6', third == '9':
	default:
		return fmt.Errorf("sri: tercer dígito de RUC inválido (%c)", third)
	}
	if string(digits[10:]) == "000" {
		return fmt.Errorf("sri: el código de establecimiento del RUC no puede ser 000")
	}
	return nil
}

// ValidateBuyerIdentification valida la identificación del comprador según su tipo.
func ValidateBuyerIdentification(idType, id string) error {
	if _, ok := ValidIdentificationTypes[idType]; !ok {
		return fmt.Errorf("sri: tipo de identificación %q no válido", idType)
	}
	switch idType {
	case IdentificationTypeRUC:
		return ValidateRUC(id)
	case IdentificationTypeCedula:
		return ValidateCedula(id)
	case IdentificationTypeFinalConsumer:
		if id != FinalConsumerID {
			return fmt.Errorf("sri: consumidor final debe usar la identificación %s", FinalConsumerID)
		}
	default:
		if id == "" || len(id) > 20 {
			return fmt.Errorf("sri: identificación del comprador debe tener entre 1 y 20 caracteres")
		}
	}
	return nil
}

func validateProvince(digits []byte) error {
	prov, _ := strconv.Atoi(string(digits[:2]))
	if (prov < 1 || prov > 24) && prov != 30 {
		return fmt.Errorf("sri: código de provincia inválido (%02d)", prov)
	}
	return nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
