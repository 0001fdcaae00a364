// Servicio de firma digital XAdES-BES para comprobantes electrónicos del SRI.
// Firma enveloped: <ds:Signature> se agrega como último hijo del elemento raíz.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/ucarion/c14n"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// XAdESSignatureService implementa la firma XAdES-BES e inyecta el nodo en el XML.
type XAdESSignatureService struct {
	now func() time.Time
}

// NewXAdESSignatureService crea el servicio.
func NewXAdESSignatureService() *XAdESSignatureService {
	return &XAdESSignatureService{now: time.Now}
}

// signatureIDs identificadores de los nodos de una firma; únicos por documento.
type signatureIDs struct {
	Signature, SignedInfo, SignedProps, SignedPropsRef, DocumentRef, SignatureValue, KeyInfo, Object string
}

func newSignatureIDs() signatureIDs {
	n := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	sig := "Signature" + n
	return signatureIDs{
		Signature:      sig,
		SignedInfo:     sig + "-SignedInfo",
		SignedProps:    sig + "-SignedProperties",
		SignedPropsRef: "SignedPropertiesID" + n,
		DocumentRef:    "Reference-ID-" + n,
		SignatureValue: "SignatureValue" + n,
		KeyInfo:        "Certificate" + n,
		Object:         sig + "-Object",
	}
}

// Sign implementa pkg/sri.Signer. Firma el XML y agrega ds:Signature al final de la raíz.
func (s *XAdESSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("%w: XML vacío", domain.ErrInvalidInput)
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("%w: credencial sin certificado", domain.ErrSigningConfig)
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: el certificado debe incluir llave privada RSA", domain.ErrSigningConfig)
	}
	x509Cert := cert.Leaf
	if x509Cert == nil {
		var err error
		if x509Cert, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrSigningConfig, err)
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("%w: parsear XML: %v", domain.ErrInvalidInput, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sin raíz", domain.ErrInvalidInput)
	}
	if root.SelectAttrValue("id", "") != ComprobanteElementID {
		return nil, fmt.Errorf("%w: la raíz debe tener id=%q", domain.ErrInvalidInput, ComprobanteElementID)
	}
	if root.SelectElement("ds:Signature") != nil {
		return nil, fmt.Errorf("%w: el documento ya está firmado", domain.ErrInvalidInput)
	}

	ids := newSignatureIDs()

	// 1) Digest del comprobante (enveloped + C14N). Reference URI="#comprobante"
	docDigestB64, err := digestElement(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	// 2) SignedProperties: SigningTime y SigningCertificate
	signingTime := s.now().Format("2006-01-02T15:04:05-07:00")
	certDigestB64, issuerName, serial := CertDigestAndIssuerSerial(x509Cert)
	signedProps, err := parseFragment(s.buildSignedProperties(ids, signingTime, certDigestB64, issuerName, serial))
	if err != nil {
		return nil, err
	}
	propsDigestB64, err := digestElement(signedProps)
	if err != nil {
		return nil, err
	}

	// 3) SignedInfo (dos referencias) y SignatureValue
	signedInfo, err := parseFragment(s.buildSignedInfo(ids, docDigestB64, propsDigestB64))
	if err != nil {
		return nil, err
	}
	canonicalInfo, err := elementBytes(signedInfo)
	if err != nil {
		return nil, err
	}
	signHash := sha256.Sum256(canonicalInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: firmar SignedInfo: %v", domain.ErrSigningConfig, err)
	}

	// 4) Ensamblar ds:Signature e inyectar
	sig := s.buildSignature(ids, signedInfo, signedProps,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(x509Cert.Raw))
	root.AddChild(sig)

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sri: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}

func (s *XAdESSignatureService) buildSignedProperties(ids signatureIDs, signingTime, certDigestB64, issuerName, serial string) string {
	var sb strings.Builder
	sb.WriteString(`<xades:SignedProperties xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + ids.SignedProps + `">`)
	sb.WriteString(`<xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SigningTime>` + signingTime + `</xades:SigningTime>`)
	sb.WriteString(`<xades:SigningCertificate><xades:Cert><xades:CertDigest><ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + certDigestB64 + `</ds:DigestValue></xades:CertDigest>`)
	sb.WriteString(`<xades:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></xades:IssuerSerial></xades:Cert></xades:SigningCertificate>`)
	sb.WriteString(`</xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SignedDataObjectProperties><xades:DataObjectFormat ObjectReference="#` + ids.DocumentRef + `">`)
	sb.WriteString(`<xades:Description>contenido comprobante</xades:Description><xades:MimeType>text/xml</xades:MimeType>`)
	sb.WriteString(`</xades:DataObjectFormat></xades:SignedDataObjectProperties>`)
	sb.WriteString(`</xades:SignedProperties>`)
	return sb.String()
}

func (s *XAdESSignatureService) buildSignedInfo(ids signatureIDs, docDigestB64, propsDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `" Id="` + ids.SignedInfo + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference Id="` + ids.SignedPropsRef + `" Type="` + TypeSignedProps + `" URI="#` + ids.SignedProps + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`<ds:Reference Id="` + ids.DocumentRef + `" URI="#` + ComprobanteElementID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgC14N + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

// buildSignature arma ds:Signature reutilizando los elementos ya digeridos,
// para que lo que se inyecta sea exactamente lo que se firmó.
func (s *XAdESSignatureService) buildSignature(ids signatureIDs, signedInfo, signedProps *etree.Element, signatureValueB64, certB64 string) *etree.Element {
	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.CreateAttr("xmlns:xades", NamespaceXAdES)
	sig.CreateAttr("Id", ids.Signature)
	sig.AddChild(signedInfo)

	sv := sig.CreateElement("ds:SignatureValue")
	sv.CreateAttr("Id", ids.SignatureValue)
	sv.SetText(signatureValueB64)

	ki := sig.CreateElement("ds:KeyInfo")
	ki.CreateAttr("Id", ids.KeyInfo)
	ki.CreateElement("ds:X509Data").CreateElement("ds:X509Certificate").SetText(certB64)

	obj := sig.CreateElement("ds:Object")
	obj.CreateAttr("Id", ids.Object)
	qp := obj.CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("Target", "#"+ids.Signature)
	qp.AddChild(signedProps)
	return sig
}

// ── helpers ───────────────────────────────────────────────────────────────────

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// elementBytes serializa el elemento de forma aislada y lo canonicaliza.
// Firma y verificación pasan por esta misma función.
func elementBytes(el *etree.Element) ([]byte, error) {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serializar <%s>: %w", el.FullTag(), err)
	}
	canonical, err := canonicalizeXML(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("canonicalizar <%s>: %w", el.FullTag(), err)
	}
	return canonical, nil
}

func digestElement(el *etree.Element) (string, error) {
	canonical, err := elementBytes(el)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), nil
}

func parseFragment(fragment string) (*etree.Element, error) {
	d := etree.NewDocument()
	if err := d.ReadFromString(fragment); err != nil {
		return nil, fmt.Errorf("sri: parsear fragmento de firma: %w", err)
	}
	root := d.Root()
	if root == nil {
		return nil, fmt.Errorf("sri: fragmento de firma vacío")
	}
	d.RemoveChild(root)
	return root, nil
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

var _ pkgsri.Signer = (*XAdESSignatureService)(nil)
