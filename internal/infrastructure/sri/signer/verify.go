package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/Eridaras/SistemaMedico/internal/domain"
)

// Verify comprueba un comprobante firmado por Sign: recalcula el digest del
// documento y de SignedProperties y valida SignatureValue contra el certificado
// embebido. Devuelve ese certificado.
func Verify(signed []byte) (*x509.Certificate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return nil, fmt.Errorf("%w: parsear XML: %v", domain.ErrSignatureInvalid, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sin raíz", domain.ErrSignatureInvalid)
	}
	sig := root.SelectElement("ds:Signature")
	if sig == nil {
		return nil, fmt.Errorf("%w: el documento no contiene ds:Signature", domain.ErrSignatureInvalid)
	}
	signedInfo := sig.SelectElement("ds:SignedInfo")
	if signedInfo == nil {
		return nil, fmt.Errorf("%w: falta ds:SignedInfo", domain.ErrSignatureInvalid)
	}

	cert, err := embeddedCertificate(sig)
	if err != nil {
		return nil, err
	}
	sigValue, err := decodeB64(sig.SelectElement("ds:SignatureValue"))
	if err != nil {
		return nil, fmt.Errorf("%w: SignatureValue: %v", domain.ErrSignatureInvalid, err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: el certificado no tiene llave RSA", domain.ErrSignatureInvalid)
	}
	canonicalInfo, err := elementBytes(signedInfo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}
	siHash := sha256.Sum256(canonicalInfo)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, siHash[:], sigValue); err != nil {
		return nil, fmt.Errorf("%w: SignatureValue no corresponde a SignedInfo", domain.ErrSignatureInvalid)
	}

	refs := signedInfo.SelectElements("ds:Reference")
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: SignedInfo sin referencias", domain.ErrSignatureInvalid)
	}

	// Las referencias internas se resuelven antes de quitar la firma del documento.
	type pending struct {
		uri, want string
		target    *etree.Element
	}
	var checks []pending
	for _, ref := range refs {
		uri := ref.SelectAttrValue("URI", "")
		want := strings.TrimSpace(textOf(ref.SelectElement("ds:DigestValue")))
		id := strings.TrimPrefix(uri, "#")
		if id == ComprobanteElementID {
			checks = append(checks, pending{uri: uri, want: want})
			continue
		}
		target := findByID(sig, id)
		if target == nil {
			return nil, fmt.Errorf("%w: referencia %s no encontrada", domain.ErrSignatureInvalid, uri)
		}
		checks = append(checks, pending{uri: uri, want: want, target: target})
	}

	root.RemoveChild(sig) // transformada enveloped
	for _, c := range checks {
		target := c.target
		if target == nil {
			target = root
		}
		got, err := digestElement(target)
		if err != nil {
			return nil, fmt.Errorf("%w: digest de %s: %v", domain.ErrSignatureInvalid, c.uri, err)
		}
		if got != c.want {
			return nil, fmt.Errorf("%w: digest de %s no coincide", domain.ErrSignatureInvalid, c.uri)
		}
	}
	return cert, nil
}

func embeddedCertificate(sig *etree.Element) (*x509.Certificate, error) {
	el := sig.FindElement("ds:KeyInfo/ds:X509Data/ds:X509Certificate")
	der, err := decodeB64(el)
	if err != nil {
		return nil, fmt.Errorf("%w: X509Certificate: %v", domain.ErrSignatureInvalid, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsear certificado embebido: %v", domain.ErrSignatureInvalid, err)
	}
	return cert, nil
}

func decodeB64(el *etree.Element) ([]byte, error) {
	if el == nil {
		return nil, fmt.Errorf("elemento ausente")
	}
	clean := strings.Join(strings.Fields(el.Text()), "")
	return base64.StdEncoding.DecodeString(clean)
}

func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Text()
}

func findByID(el *etree.Element, id string) *etree.Element {
	if el.SelectAttrValue("Id", "") == id {
		return el
	}
	for _, c := range el.ChildElements() {
		if f := findByID(c, id); f != nil {
			return f
		}
	}
	return nil
}
