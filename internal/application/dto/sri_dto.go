package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Configuración del emisor ──────────────────────────────────────────────────

// SRIConfigResponse configuración SRI activa para GET /api/sri/config.
// La contraseña del certificado nunca se devuelve en claro.
type SRIConfigResponse struct {
	ID                    string `json:"id"`
	RUC                   string `json:"ruc"`
	RazonSocial           string `json:"razon_social"`
	NombreComercial       string `json:"nombre_comercial,omitempty"`
	DirMatriz             string `json:"dir_matriz"`
	DirEstablecimiento    string `json:"dir_establecimiento,omitempty"`
	Establecimiento       string `json:"establecimiento"`
	PuntoEmision          string `json:"punto_emision"`
	Ambiente              string `json:"ambiente"`
	AmbienteNombre        string `json:"ambiente_nombre"`
	TipoEmision           string `json:"tipo_emision"`
	CodigoNumerico        string `json:"codigo_numerico"`
	SecuencialActual      int64  `json:"secuencial_actual"`
	ObligadoContabilidad  string `json:"obligado_contabilidad"` // SI | NO
	ContribuyenteEspecial string `json:"contribuyente_especial,omitempty"`
	Email                 string `json:"email,omitempty"`
	Telefono              string `json:"telefono,omitempty"`
	CertPath              string `json:"cert_path,omitempty"`
	CertPassword          string `json:"cert_password,omitempty"` // "********" si está configurada
}

// UpdateSRIConfigRequest body para PUT /api/sri/config. Solo se aplican los campos
// enviados; el secuencial no es editable.
type UpdateSRIConfigRequest struct {
	RUC                   *string `json:"ruc"`
	RazonSocial           *string `json:"razon_social"`
	NombreComercial       *string `json:"nombre_comercial"`
	DirMatriz             *string `json:"dir_matriz"`
	DirEstablecimiento    *string `json:"dir_establecimiento"`
	Establecimiento       *string `json:"establecimiento"`
	PuntoEmision          *string `json:"punto_emision"`
	Ambiente              *string `json:"ambiente"`
	TipoEmision           *string `json:"tipo_emision"`
	CodigoNumerico        *string `json:"codigo_numerico"`
	ObligadoContabilidad  *string `json:"obligado_contabilidad"` // SI | NO
	ContribuyenteEspecial *string `json:"contribuyente_especial"`
	Email                 *string `json:"email"`
	Telefono              *string `json:"telefono"`
	CertPath              *string `json:"cert_path"`
	CertPassword          *string `json:"cert_password"`
}

// ── Facturas electrónicas ─────────────────────────────────────────────────────

// CreateSRIInvoiceRequest body para POST /api/sri/invoices.
type CreateSRIInvoiceRequest struct {
	FechaEmision        string                      `json:"fecha_emision,omitempty"` // YYYY-MM-DD; vacío = hoy
	TipoIdentificacion  string                      `json:"tipo_identificacion"`
	Identificacion      string                      `json:"identificacion"`
	RazonSocial         string                      `json:"razon_social"`
	Direccion           string                      `json:"direccion,omitempty"`
	Email               string                      `json:"email,omitempty"`
	Telefono            string                      `json:"telefono,omitempty"`
	Items               []SRIInvoiceItemRequest     `json:"items"`
	Pagos               []SRIPaymentRequest         `json:"pagos,omitempty"`
	CamposAdicionales   []SRIAdditionalFieldRequest `json:"campos_adicionales,omitempty"`
}

// SRIInvoiceItemRequest línea del borrador. Basta codigo_porcentaje o tarifa.
type SRIInvoiceItemRequest struct {
	CodigoPrincipal  string          `json:"codigo_principal"`
	CodigoAuxiliar   string          `json:"codigo_auxiliar,omitempty"`
	Descripcion      string          `json:"descripcion"`
	Cantidad         decimal.Decimal `json:"cantidad"`
	PrecioUnitario   decimal.Decimal `json:"precio_unitario"`
	Descuento        decimal.Decimal `json:"descuento"`
	CodigoPorcentaje string          `json:"codigo_porcentaje,omitempty"`
	Tarifa           decimal.Decimal `json:"tarifa"`
}

// SRIPaymentRequest forma de pago (tabla 24).
type SRIPaymentRequest struct {
	FormaPago    string          `json:"forma_pago"`
	Total        decimal.Decimal `json:"total"`
	Plazo        *int            `json:"plazo,omitempty"`
	UnidadTiempo string          `json:"unidad_tiempo,omitempty"`
}

// SRIAdditionalFieldRequest campo de infoAdicional.
type SRIAdditionalFieldRequest struct {
	Nombre string `json:"nombre"`
	Valor  string `json:"valor"`
}

// SRIInvoiceResponse factura con detalle y bitácora para GET /api/sri/invoices/:id.
type SRIInvoiceResponse struct {
	ID                  string                        `json:"id"`
	Numero              string                        `json:"numero"`
	Secuencial          int64                         `json:"secuencial"`
	ClaveAcceso         string                        `json:"clave_acceso"`
	Version             int                           `json:"version_documento"`
	FechaEmision        string                        `json:"fecha_emision"`
	Ambiente            string                        `json:"ambiente"`
	TipoIdentificacion  string                        `json:"tipo_identificacion"`
	Identificacion      string                        `json:"identificacion"`
	RazonSocial         string                        `json:"razon_social"`
	Direccion           string                        `json:"direccion,omitempty"`
	Email               string                        `json:"email,omitempty"`
	Telefono            string                        `json:"telefono,omitempty"`
	TotalSinImpuestos   decimal.Decimal               `json:"total_sin_impuestos"`
	TotalDescuento      decimal.Decimal               `json:"total_descuento"`
	TotalImpuestos      decimal.Decimal               `json:"total_impuestos"`
	ImporteTotal        decimal.Decimal               `json:"importe_total"`
	Status              string                        `json:"status"`
	EstadoSRI           string                        `json:"estado_sri"`
	MensajeSRI          string                        `json:"mensaje_sri,omitempty"`
	NumeroAutorizacion  string                        `json:"numero_autorizacion,omitempty"`
	FechaAutorizacion   *time.Time                    `json:"fecha_autorizacion,omitempty"`
	Firmado             bool                          `json:"firmado"`
	ChecksumFirmado     string                        `json:"checksum_firmado,omitempty"`
	Items               []SRIInvoiceItemResponse      `json:"items,omitempty"`
	Pagos               []SRIPaymentResponse          `json:"pagos,omitempty"`
	CamposAdicionales   []SRIAdditionalFieldRequest   `json:"campos_adicionales,omitempty"`
	Bitacora            []AuthorizationRecordResponse `json:"bitacora,omitempty"`
}

// SRIInvoiceItemResponse línea con neto e impuesto calculados.
type SRIInvoiceItemResponse struct {
	Linea                  int             `json:"linea"`
	CodigoPrincipal        string          `json:"codigo_principal"`
	CodigoAuxiliar         string          `json:"codigo_auxiliar,omitempty"`
	Descripcion            string          `json:"descripcion"`
	Cantidad               decimal.Decimal `json:"cantidad"`
	PrecioUnitario         decimal.Decimal `json:"precio_unitario"`
	Descuento              decimal.Decimal `json:"descuento"`
	CodigoPorcentaje       string          `json:"codigo_porcentaje"`
	Tarifa                 decimal.Decimal `json:"tarifa"`
	PrecioTotalSinImpuesto decimal.Decimal `json:"precio_total_sin_impuesto"`
	ValorImpuesto          decimal.Decimal `json:"valor_impuesto"`
}

// SRIPaymentResponse pago registrado.
type SRIPaymentResponse struct {
	FormaPago    string          `json:"forma_pago"`
	Descripcion  string          `json:"descripcion"`
	Total        decimal.Decimal `json:"total"`
	Plazo        *int            `json:"plazo,omitempty"`
	UnidadTiempo string          `json:"unidad_tiempo,omitempty"`
}

// AuthorizationRecordResponse evento de la bitácora de autorización.
type AuthorizationRecordResponse struct {
	Evento             string     `json:"evento"`
	EstadoSRI          string     `json:"estado_sri,omitempty"`
	ClaveAcceso        string     `json:"clave_acceso"`
	NumeroAutorizacion string     `json:"numero_autorizacion,omitempty"`
	FechaAutorizacion  *time.Time `json:"fecha_autorizacion,omitempty"`
	Mensaje            string     `json:"mensaje,omitempty"`
	Fecha              time.Time  `json:"fecha"`
}

// SRIInvoiceListResponse listado paginado.
type SRIInvoiceListResponse struct {
	Items []SRIInvoiceResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// SRIInvoiceStatsResponse conteos para GET /api/sri/invoices/stats.
type SRIInvoiceStatsResponse struct {
	Total           int             `json:"total"`
	Autorizadas     int             `json:"autorizadas"`
	Pendientes      int             `json:"pendientes"`
	NoAutorizadas   int             `json:"no_autorizadas"`
	ConError        int             `json:"con_error"`
	MontoAutorizado decimal.Decimal `json:"monto_autorizado"`
}

// ListSRIInvoicesQuery filtros de GET /api/sri/invoices.
type ListSRIInvoicesQuery struct {
	Estado string `query:"estado"` // GENERATED, AUTHORIZED, ...
	From   string `query:"from"`   // YYYY-MM-DD
	To     string `query:"to"`     // YYYY-MM-DD, inclusive
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

// SRIOperationErrorResponse error de autorización/regeneración con el estado
// resultante de la factura.
type SRIOperationErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Factura *SRIInvoiceResponse `json:"factura,omitempty"`
}
