// Package storage implementa el archivo legal de comprobantes XML sobre afero.
//
// Estructura:
//
//	<base>/xml/<yyyy>/<MM>/facturas/<num>.xml            pendiente (firmado, aún sin autorizar)
//	<base>/xml/<yyyy>/<MM>/facturas/<num>_SIN_FIRMA.xml  XML generado antes de firmar
//	<base>/xml/<yyyy>/<MM>/autorizados/<num>_AUTORIZADO.xml
//	<base>/xml/<yyyy>/<MM>/rechazados/<num>_<NO_AUTORIZADO|DEVUELTA|ERROR>.xml
//	<base>/backup/<num>_<yyyyMMdd_HHmmss_micro>.xml      copia de cada escritura
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/Eridaras/SistemaMedico/internal/domain"
)

// Variant variante archivada de un comprobante.
type Variant string

const (
	VariantPending       Variant = "PENDIENTE"
	VariantUnsigned      Variant = "SIN_FIRMA"
	VariantAuthorized    Variant = "AUTORIZADO"
	VariantNotAuthorized Variant = "NO_AUTORIZADO"
	VariantReturned      Variant = "DEVUELTA"
	VariantError         Variant = "ERROR"
)

const (
	dirXML        = "xml"
	dirBackup     = "backup"
	dirPending    = "facturas"
	dirAuthorized = "autorizados"
	dirRejected   = "rechazados"
)

// ArchivedFile metadatos de un archivo guardado.
type ArchivedFile struct {
	Path     string `json:"ruta"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"tamano"`
}

// Stats conteo por carpeta y tamaño total del archivo.
type Stats struct {
	Pending    int   `json:"pendientes"`
	Authorized int   `json:"autorizados"`
	Rejected   int   `json:"rechazados"`
	Backups    int   `json:"respaldos"`
	TotalBytes int64 `json:"bytes_totales"`
}

// XMLArchive guarda y recupera comprobantes. Es seguro para uso concurrente
// dentro de un proceso.
type XMLArchive struct {
	fs   afero.Fs
	base string
	now  func() time.Time
	mu   sync.Mutex
}

// NewXMLArchive crea el archivo sobre el filesystem dado.
func NewXMLArchive(fsys afero.Fs, basePath string) *XMLArchive {
	if basePath == "" {
		basePath = "storage"
	}
	return &XMLArchive{fs: fsys, base: basePath, now: time.Now}
}

// NewOSArchive archivo sobre el disco local.
func NewOSArchive(basePath string) *XMLArchive {
	return NewXMLArchive(afero.NewOsFs(), basePath)
}

// Checksum SHA-256 hex del contenido.
func Checksum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// PathFor ruta relativa de la variante para la fecha de emisión.
func (a *XMLArchive) PathFor(number string, variant Variant, date time.Time) (string, error) {
	if err := validateNumber(number); err != nil {
		return "", err
	}
	dir, name, err := layout(number, variant)
	if err != nil {
		return "", err
	}
	return path.Join(a.base, dirXML, date.Format("2006"), date.Format("01"), dir, name), nil
}

// Save escribe la variante y una copia de respaldo.
// Reescribir la misma variante reemplaza el archivo, salvo AUTORIZADO: contenido
// idéntico es un no-op y contenido distinto devuelve ErrArchiveConflict.
func (a *XMLArchive) Save(number string, content []byte, variant Variant, date time.Time) (ArchivedFile, error) {
	p, err := a.PathFor(number, variant, date)
	if err != nil {
		return ArchivedFile{}, err
	}
	sum := Checksum(content)

	a.mu.Lock()
	defer a.mu.Unlock()

	if variant == VariantAuthorized {
		existing, err := afero.ReadFile(a.fs, p)
		switch {
		case err == nil && Checksum(existing) == sum:
			return ArchivedFile{Path: p, Checksum: sum, Size: int64(len(existing))}, nil
		case err == nil:
			return ArchivedFile{}, fmt.Errorf("%w: %s ya existe con otro contenido", domain.ErrArchiveConflict, p)
		case !errors.Is(err, fs.ErrNotExist):
			return ArchivedFile{}, fmt.Errorf("%w: leer %s: %v", domain.ErrArchive, p, err)
		}
	}

	if err := a.writeAtomic(p, content); err != nil {
		return ArchivedFile{}, err
	}
	if err := a.backup(number, content); err != nil {
		return ArchivedFile{}, err
	}
	return ArchivedFile{Path: p, Checksum: sum, Size: int64(len(content))}, nil
}

// Get lee la variante; ErrNotFound si no existe.
func (a *XMLArchive) Get(number string, variant Variant, date time.Time) ([]byte, error) {
	p, err := a.PathFor(number, variant, date)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(a.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: leer %s: %v", domain.ErrArchive, p, err)
	}
	return data, nil
}

// Verify compara el checksum almacenado con el esperado.
func (a *XMLArchive) Verify(number string, variant Variant, date time.Time, expectedChecksum string) error {
	data, err := a.Get(number, variant, date)
	if err != nil {
		return err
	}
	if got := Checksum(data); !strings.EqualFold(got, expectedChecksum) {
		return fmt.Errorf("%w: %s (esperado %s, obtenido %s)", domain.ErrChecksumMismatch, number, expectedChecksum, got)
	}
	return nil
}

// List devuelve los nombres de archivo de un mes. variant vacío lista todas las carpetas.
func (a *XMLArchive) List(year, month int, variant Variant) ([]string, error) {
	monthDir := path.Join(a.base, dirXML, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month))
	dirs := []string{dirPending, dirAuthorized, dirRejected}
	if variant != "" {
		d, _, err := layout("x", variant)
		if err != nil {
			return nil, err
		}
		dirs = []string{d}
	}

	var names []string
	for _, d := range dirs {
		entries, err := afero.ReadDir(a.fs, path.Join(monthDir, d))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: listar %s: %v", domain.ErrArchive, d, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
				continue
			}
			if variant != "" && !matchesVariant(e.Name(), variant) {
				continue
			}
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Stats recorre el archivo completo.
func (a *XMLArchive) Stats() (Stats, error) {
	var st Stats
	err := afero.Walk(a.fs, a.base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".xml") {
			return nil
		}
		st.TotalBytes += info.Size()
		switch path.Base(path.Dir(p)) {
		case dirPending:
			st.Pending++
		case dirAuthorized:
			st.Authorized++
		case dirRejected:
			st.Rejected++
		case dirBackup:
			st.Backups++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: estadísticas: %v", domain.ErrArchive, err)
	}
	return st, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (a *XMLArchive) writeAtomic(p string, content []byte) error {
	if err := a.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: crear directorio: %v", domain.ErrArchive, err)
	}
	tmp := p + ".tmp"
	if err := afero.WriteFile(a.fs, tmp, content, 0o644); err != nil {
		return fmt.Errorf("%w: escribir %s: %v", domain.ErrArchive, p, err)
	}
	if err := a.fs.Rename(tmp, p); err != nil {
		_ = a.fs.Remove(tmp)
		return fmt.Errorf("%w: renombrar %s: %v", domain.ErrArchive, p, err)
	}
	return nil
}

func (a *XMLArchive) backup(number string, content []byte) error {
	dir := path.Join(a.base, dirBackup)
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: crear respaldo: %v", domain.ErrArchive, err)
	}
	ts := a.now().Format("20060102_150405_000000")
	p := path.Join(dir, number+"_"+ts+".xml")
	for n := 1; ; n++ {
		if ok, _ := afero.Exists(a.fs, p); !ok {
			break
		}
		p = path.Join(dir, fmt.Sprintf("%s_%s_%d.xml", number, ts, n))
	}
	if err := afero.WriteFile(a.fs, p, content, 0o644); err != nil {
		return fmt.Errorf("%w: escribir respaldo: %v", domain.ErrArchive, err)
	}
	return nil
}

func layout(number string, variant Variant) (dir, name string, err error) {
	switch variant {
	case VariantPending:
		return dirPending, number + ".xml", nil
	case VariantUnsigned:
		return dirPending, number + "_SIN_FIRMA.xml", nil
	case VariantAuthorized:
		return dirAuthorized, number + "_AUTORIZADO.xml", nil
	case VariantNotAuthorized, VariantReturned, VariantError:
		return dirRejected, number + "_" + string(variant) + ".xml", nil
	}
	return "", "", fmt.Errorf("%w: variante de archivo %q desconocida", domain.ErrInvalidInput, variant)
}

func matchesVariant(name string, variant Variant) bool {
	switch variant {
	case VariantPending:
		return !strings.Contains(name, "_")
	case VariantUnsigned, VariantAuthorized, VariantNotAuthorized, VariantReturned, VariantError:
		return strings.HasSuffix(name, "_"+string(variant)+".xml")
	}
	return false
}

func validateNumber(number string) error {
	if number == "" || strings.ContainsAny(number, `/\`) || strings.Contains(number, "..") {
		return fmt.Errorf("%w: número de comprobante %q no válido para archivo", domain.ErrInvalidInput, number)
	}
	return nil
}
