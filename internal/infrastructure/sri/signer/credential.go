// Carga de certificado desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/Eridaras/SistemaMedico/internal/domain"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// Los tokens de las entidades certificadoras ecuatorianas incluyen la cadena
// completa, por eso se usa ToPEM en lugar de Decode (que exige exactamente dos bolsas).
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: leer p12: %v", domain.ErrSigningConfig, err)
	}
	return ParseP12(data, password)
}

// ParseP12 igual que LoadFromP12 pero desde memoria.
func ParseP12(data []byte, password string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: decodificar p12: %v", domain.ErrSigningConfig, err)
	}

	var certs []*x509.Certificate
	var keys []crypto.PrivateKey
	for _, b := range blocks {
		switch b.Type {
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("%w: parsear certificado: %v", domain.ErrSigningConfig, err)
			}
			certs = append(certs, c)
		case "PRIVATE KEY":
			k, err := parsePrivateKey(b.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("%w: parsear llave privada: %v", domain.ErrSigningConfig, err)
			}
			keys = append(keys, k)
		}
	}
	if len(certs) == 0 || len(keys) == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: el p12 no contiene certificado y llave", domain.ErrSigningConfig)
	}

	leaf, key := pickSigningPair(certs, keys)
	if leaf == nil {
		return tls.Certificate{}, fmt.Errorf("%w: ninguna llave corresponde a los certificados del p12", domain.ErrSigningConfig)
	}
	chain := [][]byte{leaf.Raw}
	for _, c := range certs {
		if c != leaf {
			chain = append(chain, c.Raw)
		}
	}
	return tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: leaf}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (certificado y llave por separado, o combinados).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: cargar PEM: %v", domain.ErrSigningConfig, err)
	}
	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("%w: parsear certificado: %v", domain.ErrSigningConfig, err)
		}
		cert.Leaf = leaf
	}
	return cert, nil
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	return nil, errors.New("formato de llave no soportado")
}

// pickSigningPair elige el certificado cuya llave pública corresponde a alguna llave,
// prefiriendo los de uso firma digital / no repudio.
func pickSigningPair(certs []*x509.Certificate, keys []crypto.PrivateKey) (*x509.Certificate, crypto.PrivateKey) {
	var fallbackCert *x509.Certificate
	var fallbackKey crypto.PrivateKey
	for _, c := range certs {
		for _, k := range keys {
			if !publicKeyMatches(c, k) {
				continue
			}
			if c.KeyUsage&(x509.KeyUsageDigitalSignature|x509.KeyUsageContentCommitment) != 0 {
				return c, k
			}
			if fallbackCert == nil {
				fallbackCert, fallbackKey = c, k
			}
		}
	}
	return fallbackCert, fallbackKey
}

func publicKeyMatches(c *x509.Certificate, k crypto.PrivateKey) bool {
	switch priv := k.(type) {
	case *rsa.PrivateKey:
		pub, ok := c.PublicKey.(*rsa.PublicKey)
		return ok && pub.Equal(&priv.PublicKey)
	case *ecdsa.PrivateKey:
		pub, ok := c.PublicKey.(*ecdsa.PublicKey)
		return ok && pub.Equal(&priv.PublicKey)
	}
	return false
}

// CheckValidity verifica la ventana NotBefore/NotAfter del certificado en el instante now.
func CheckValidity(cert *x509.Certificate, now time.Time) error {
	if cert == nil {
		return fmt.Errorf("%w: sin certificado", domain.ErrSigningConfig)
	}
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("%w: %w: válido desde %s", domain.ErrSigningConfig, domain.ErrCertificateNotYetValid, cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("%w: %w: venció el %s", domain.ErrSigningConfig, domain.ErrCertificateExpired, cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// CertificateInfo resumen del certificado de firma para diagnóstico.
type CertificateInfo struct {
	Subject       string    `json:"sujeto"`
	Issuer        string    `json:"emisor"`
	SerialNumber  string    `json:"serial"`
	NotBefore     time.Time `json:"valido_desde"`
	NotAfter      time.Time `json:"valido_hasta"`
	DaysRemaining int       `json:"dias_restantes"`
	Valid         bool      `json:"vigente"`
}

// Describe construye CertificateInfo para el instante now.
func Describe(cert *x509.Certificate, now time.Time) CertificateInfo {
	days := int(math.Floor(cert.NotAfter.Sub(now).Hours() / 24))
	return CertificateInfo{
		Subject:       cert.Subject.String(),
		Issuer:        cert.Issuer.String(),
		SerialNumber:  cert.SerialNumber.String(),
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		DaysRemaining: days,
		Valid:         CheckValidity(cert, now) == nil,
	}
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64), el emisor
// y el serial en decimal, como exige X509SerialNumber.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}

// EncodePEM serializa certificado y llave RSA en un único bloque PEM (útil para la CLI y tests).
func EncodePEM(cert tls.Certificate) ([]byte, error) {
	var buf bytes.Buffer
	for _, der := range cert.Certificate {
		if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
			return nil, err
		}
	}
	der, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("serializar llave: %w", err)
	}
	if err := pem.Encode(&buf, &pem.Block{Type: "PRIVATE KEY", Bytes: der}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
