package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	applog "github.com/Eridaras/SistemaMedico/pkg/logger"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	baseURLTest = "https://celcer.sri.gob.ec"
	baseURLProd = "https://cel.sri.gob.ec"

	receptionPath     = "/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	authorizationPath = "/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20 // la autorización devuelve el comprobante completo
)

// ClientConfig parámetros del cliente SOAP. Las URL vacías se derivan del ambiente.
type ClientConfig struct {
	Environment      string // "1" pruebas, "2" producción
	ReceptionURL     string
	AuthorizationURL string
	Timeout          time.Duration
}

// Endpoints devuelve las URL de recepción y autorización efectivas.
func (c ClientConfig) Endpoints() (reception, authorization string) {
	base := baseURLTest
	if c.Environment == pkgsri.EnvironmentProduction {
		base = baseURLProd
	}
	reception, authorization = base+receptionPath, base+authorizationPath
	if c.ReceptionURL != "" {
		reception = c.ReceptionURL
	}
	if c.AuthorizationURL != "" {
		authorization = c.AuthorizationURL
	}
	return reception, authorization
}

// ── Implementación SOAP ────────────────────────────────────────────────────────

// SOAPClient cliente de los servicios offline del SRI (recepción y autorización).
// No reintenta: la política de reintentos pertenece al orquestador.
// Ninguna falla escapa como error; todo se normaliza en SubmitOutcome / AuthorizationOutcome.
type SOAPClient struct {
	httpClient       *http.Client
	receptionURL     string
	authorizationURL string
	log              zerolog.Logger
}

// NewSOAPClient construye el cliente. Timeout cero usa 30 s.
func NewSOAPClient(cfg ClientConfig, log zerolog.Logger) *SOAPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rec, auth := cfg.Endpoints()
	return &SOAPClient{
		httpClient:       &http.Client{Timeout: timeout},
		receptionURL:     rec,
		authorizationURL: auth,
		log:              applog.Component(log, "sri_soap"),
	}
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	XmlnsEc string     `xml:"xmlns:ec,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// validarComprobanteBody operación de recepción; el comprobante viaja en Base64.
type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"`
}

// autorizacionComprobanteBody operación de consulta de autorización por clave de acceso.
type autorizacionComprobanteBody struct {
	XMLName   xml.Name `xml:"ec:autorizacionComprobante"`
	AccessKey string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Reception     *validarComprobanteResponse      `xml:"validarComprobanteResponse"`
	Authorization *autorizacionComprobanteResponse `xml:"autorizacionComprobanteResponse"`
	Fault         *soapFault                       `xml:"Fault"`
}

type validarComprobanteResponse struct {
	Result *respuestaRecepcion `xml:"RespuestaRecepcionComprobante"`
}

type respuestaRecepcion struct {
	Estado       string               `xml:"estado"`
	Comprobantes []comprobanteMensaje `xml:"comprobantes>comprobante"`
}

type comprobanteMensaje struct {
	ClaveAcceso string        `xml:"claveAcceso"`
	Mensajes    []mensajeSOAP `xml:"mensajes>mensaje"`
}

type mensajeSOAP struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type autorizacionComprobanteResponse struct {
	Result *respuestaAutorizacion `xml:"RespuestaAutorizacionComprobante"`
}

type respuestaAutorizacion struct {
	ClaveAccesoConsultada string         `xml:"claveAccesoConsultada"`
	NumeroComprobantes    string         `xml:"numeroComprobantes"`
	Autorizaciones        []autorizacion `xml:"autorizaciones>autorizacion"`
}

type autorizacion struct {
	Estado             string        `xml:"estado"`
	NumeroAutorizacion string        `xml:"numeroAutorizacion"`
	FechaAutorizacion  string        `xml:"fechaAutorizacion"`
	Ambiente           string        `xml:"ambiente"`
	Comprobante        string        `xml:"comprobante"`
	Mensajes           []mensajeSOAP `xml:"mensajes>mensaje"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Submit ────────────────────────────────────────────────────────────────────

// Submit envía el comprobante firmado a RecepcionComprobantesOffline.
func (c *SOAPClient) Submit(ctx context.Context, signedXML []byte) SubmitOutcome {
	body := &validarComprobanteBody{XML: base64.StdEncoding.EncodeToString(signedXML)}
	reqXML, raw, fault := c.call(ctx, c.receptionURL, nsRecepcion, body)
	out := SubmitOutcome{RawRequest: reqXML, RawResponse: string(raw)}
	if fault != nil {
		out.Status, out.Fault = SubmitFault, fault
		return out
	}

	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		out.Status, out.Fault = SubmitFault, protocolFault("respuesta de recepción no es XML válido", err)
		return out
	}
	if f := env.Body.Fault; f != nil {
		out.Status, out.Fault = SubmitFault, protocolFault(fmt.Sprintf("SOAP Fault [%s]: %s", f.FaultCode, f.FaultString), nil)
		return out
	}
	if env.Body.Reception == nil || env.Body.Reception.Result == nil {
		out.Status, out.Fault = SubmitFault, protocolFault("respuesta de recepción vacía o inesperada", nil)
		return out
	}

	res := env.Body.Reception.Result
	for _, comp := range res.Comprobantes {
		out.Messages = append(out.Messages, toMessages(comp.Mensajes)...)
	}
	switch strings.ToUpper(strings.TrimSpace(res.Estado)) {
	case string(SubmitReceived):
		out.Status = SubmitReceived
	case string(SubmitReturned):
		out.Status = SubmitReturned
	default:
		out.Status, out.Fault = SubmitFault, protocolFault(fmt.Sprintf("estado de recepción desconocido %q", res.Estado), nil)
	}
	c.log.Debug().Str("estado", string(out.Status)).Int("mensajes", len(out.Messages)).Msg("recepción SRI")
	return out
}

// ── QueryAuthorization ───────────────────────────────────────────────────────

// QueryAuthorization consulta AutorizacionComprobantesOffline por clave de acceso.
// Sin autorizaciones en la respuesta se interpreta EN PROCESO.
func (c *SOAPClient) QueryAuthorization(ctx context.Context, accessKey string) AuthorizationOutcome {
	body := &autorizacionComprobanteBody{AccessKey: accessKey}
	reqXML, raw, fault := c.call(ctx, c.authorizationURL, nsAutorizacion, body)
	out := AuthorizationOutcome{RawRequest: reqXML, RawResponse: string(raw)}
	if fault != nil {
		out.Status, out.Fault = AuthorizationFault, fault
		return out
	}

	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		out.Status, out.Fault = AuthorizationFault, protocolFault("respuesta de autorización no es XML válido", err)
		return out
	}
	if f := env.Body.Fault; f != nil {
		out.Status, out.Fault = AuthorizationFault, protocolFault(fmt.Sprintf("SOAP Fault [%s]: %s", f.FaultCode, f.FaultString), nil)
		return out
	}
	if env.Body.Authorization == nil || env.Body.Authorization.Result == nil {
		out.Status, out.Fault = AuthorizationFault, protocolFault("respuesta de autorización vacía o inesperada", nil)
		return out
	}

	res := env.Body.Authorization.Result
	if len(res.Autorizaciones) == 0 {
		out.Status = AuthorizationInProcess
		return out
	}
	a := pickAuthorization(res.Autorizaciones)
	out.Messages = toMessages(a.Mensajes)
	out.Environment = strings.TrimSpace(a.Ambiente)

	switch strings.ToUpper(strings.TrimSpace(a.Estado)) {
	case string(AuthorizationAuthorized):
		out.Status = AuthorizationAuthorized
		out.AuthorizationNumber = strings.TrimSpace(a.NumeroAutorizacion)
		if out.AuthorizationNumber == "" {
			out.AuthorizationNumber = accessKey
		}
		if ts, err := parseAuthorizationDate(a.FechaAutorizacion); err == nil {
			out.AuthorizationDate = &ts
		}
		out.Document = strings.TrimSpace(a.Comprobante)
	case string(AuthorizationNotAuthorized):
		out.Status = AuthorizationNotAuthorized
	case string(AuthorizationInProcess), "PROCESANDO":
		out.Status = AuthorizationInProcess
	default:
		out.Status, out.Fault = AuthorizationFault, protocolFault(fmt.Sprintf("estado de autorización desconocido %q", a.Estado), nil)
	}
	c.log.Debug().Str("clave_acceso", accessKey).Str("estado", string(out.Status)).Msg("autorización SRI")
	return out
}

// ── Ping ──────────────────────────────────────────────────────────────────────

// EndpointStatus resultado del chequeo de conectividad de un servicio.
type EndpointStatus struct {
	Service   string `json:"servicio"`
	URL       string `json:"url"`
	Reachable bool   `json:"disponible"`
	LatencyMS int64  `json:"latencia_ms"`
	Error     string `json:"error,omitempty"`
}

// Ping consulta el WSDL de recepción y autorización.
func (c *SOAPClient) Ping(ctx context.Context) []EndpointStatus {
	return []EndpointStatus{
		c.ping(ctx, "recepcion", c.receptionURL),
		c.ping(ctx, "autorizacion", c.authorizationURL),
	}
}

func (c *SOAPClient) ping(ctx context.Context, service, url string) EndpointStatus {
	st := EndpointStatus{Service: service, URL: url}
	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"?wsdl", nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	resp, err := c.httpClient.Do(req)
	st.LatencyMS = time.Since(started).Milliseconds()
	if err != nil {
		st.Error = err.Error()
		return st
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode != http.StatusOK {
		st.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return st
	}
	st.Reachable = true
	return st
}

// ── helpers ───────────────────────────────────────────────────────────────────

// call serializa el envelope, hace el POST y clasifica fallas de red.
// Devuelve el request serializado y el cuerpo crudo de la respuesta.
func (c *SOAPClient) call(ctx context.Context, url, ns string, body interface{}) (string, []byte, *Fault) {
	envelope := soapEnvelope{
		XmlnsS:  soapNS,
		XmlnsEc: ns,
		Body:    soapBody{Content: body},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return "", nil, protocolFault("serializar envelope", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return string(payload), nil, protocolFault("crear request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return string(payload), nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	// Se lee un byte de más para distinguir "justo en el límite" de "truncada".
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return string(payload), nil, classifyTransport(ctx, err)
	}
	if len(raw) > maxResponseSize {
		return string(payload), nil, &Fault{
			Kind:    FaultOversized,
			Message: fmt.Sprintf("respuesta HTTP %d excede %d bytes", resp.StatusCode, maxResponseSize),
		}
	}

	if resp.StatusCode >= 300 {
		// El SRI devuelve SOAP Fault con HTTP 500; se deja al parser clasificarlo.
		if bytes.Contains(raw, []byte("Fault")) {
			return string(payload), raw, nil
		}
		if resp.StatusCode >= 500 {
			return string(payload), raw, &Fault{Kind: FaultTransport, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}
		return string(payload), raw, protocolFault(fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}
	return string(payload), raw, nil
}

func classifyTransport(ctx context.Context, err error) *Fault {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Fault{Kind: FaultTimeout, Message: "tiempo de espera agotado", Cause: err}
	}
	return &Fault{Kind: FaultTransport, Message: "llamada HTTP fallida", Cause: err}
}

// pickAuthorization prefiere la autorización AUTORIZADO si el SRI devuelve varias.
func pickAuthorization(list []autorizacion) autorizacion {
	for _, a := range list {
		if strings.EqualFold(strings.TrimSpace(a.Estado), string(AuthorizationAuthorized)) {
			return a
		}
	}
	return list[0]
}

func toMessages(in []mensajeSOAP) []entity.AuthorityMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.AuthorityMessage, 0, len(in))
	for _, m := range in {
		out = append(out, entity.AuthorityMessage{
			Identifier:     strings.TrimSpace(m.Identificador),
			Message:        strings.TrimSpace(m.Mensaje),
			AdditionalInfo: strings.TrimSpace(m.InformacionAdicional),
			Type:           strings.TrimSpace(m.Tipo),
		})
	}
	return out
}

var authorizationDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

func parseAuthorizationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range authorizationDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha de autorización no reconocida %q", s)
}

// FormatMessages une los mensajes en una línea legible para mensaje_sri.
func FormatMessages(msgs []entity.AuthorityMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		p := m.Identifier + ": " + m.Message
		if m.AdditionalInfo != "" {
			p += " (" + m.AdditionalInfo + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}
