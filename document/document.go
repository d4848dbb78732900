package document

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tsawler/lazypdf/core"
	"github.com/tsawler/lazypdf/internal/logger"
)

// headerWindow is how far into the file the %PDF- marker is searched for
const headerWindow = 1024

// Document is a PDF file read through an io.ReaderAt. Its state is built by
// CheckHeader, ParseStartXRef and Parse and is only replaced when one of
// them succeeds, so every method may be repeated after a data fault.
type Document struct {
	src    io.ReaderAt
	length int64
	opts   EvaluatorOptions
	log    *logger.Logger

	mu           sync.Mutex
	version      string
	startXRef    int64
	hasStartXRef bool
	xref         *XRef
	catalog      *Catalog
}

// New creates a document over the first length bytes of src
func New(src io.ReaderAt, length int64, opts EvaluatorOptions, options ...Option) *Document {
	if opts.ObjectCacheSize <= 0 {
		opts.ObjectCacheSize = DefaultObjectCacheSize
	}
	d := &Document{
		src:    src,
		length: length,
		opts:   opts,
		log:    logger.Nop(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Length returns the total file length in bytes
func (d *Document) Length() int64 {
	return d.length
}

// Options returns the evaluator options
func (d *Document) Options() EvaluatorOptions {
	return d.opts
}

// CheckHeader reads the %PDF-x.y marker near the start of the file. A
// missing marker is logged and tolerated, as readers commonly do.
func (d *Document) CheckHeader() error {
	rec := newFaultRecorder(d.src)
	version, err := d.readHeader(rec)
	if err = rec.result(err); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	if version == "" {
		d.log.Warn().Msg("PDF header not found")
	}
	return nil
}

func (d *Document) readHeader(r io.ReaderAt) (string, error) {
	buf := make([]byte, min(d.length, headerWindow))
	if _, err := r.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read header: %w", err)
	}

	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 {
		return "", nil
	}
	rest := buf[idx+5:]
	end := 0
	for end < len(rest) && end < 4 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	return string(rest[:end]), nil
}

// Version returns the header version, or "" when there was none
func (d *Document) Version() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// ParseStartXRef locates the startxref offset at the end of the file
func (d *Document) ParseStartXRef() error {
	rec := newFaultRecorder(d.src)
	offset, err := core.NewXRefParser(rec, d.length).FindStartXRef()
	if err = rec.result(err); err != nil {
		return err
	}

	d.mu.Lock()
	d.startXRef = offset
	d.hasStartXRef = true
	d.mu.Unlock()
	return nil
}

// StartXRef returns the offset found by ParseStartXRef
func (d *Document) StartXRef() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startXRef, d.hasStartXRef
}

// Parse reads the whole cross-reference chain and sets up decryption with
// password. An encrypted document that password does not open yields a
// *PasswordError; Parse can then be called again with another password.
func (d *Document) Parse(password []byte) error {
	rec := newFaultRecorder(d.src)
	xref, err := d.parse(rec, password)
	if err = rec.result(err); err != nil {
		return err
	}

	d.mu.Lock()
	d.xref = xref
	d.catalog = nil
	d.mu.Unlock()

	d.log.Debug().
		Int("objects", xref.Size()).
		Bool("encrypted", xref.Encrypted()).
		Msg("cross-reference table parsed")
	return nil
}

func (d *Document) parse(r io.ReaderAt, password []byte) (*XRef, error) {
	table, err := core.NewXRefParser(r, d.length).ParseAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse cross-reference table: %w", err)
	}

	xref, err := newXRef(table, d.src, d.length, d.opts.ObjectCacheSize)
	if err != nil {
		return nil, err
	}

	encObj := table.Trailer.Get("Encrypt")
	if encObj == nil {
		return xref, nil
	}
	if ref, ok := encObj.(core.IndirectRef); ok {
		xref.encryptRef = &ref
	}
	resolved, err := xref.resolve(r, encObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Encrypt: %w", err)
	}
	encDict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Encrypt type: %T", resolved)
	}

	params, err := parseEncryptParams(encDict, table.Trailer)
	if err != nil {
		return nil, err
	}
	handler, err := newSecurityHandler(params, password)
	if err != nil {
		return nil, err
	}

	// objects cached before the key was known are still encrypted
	xref.purge()
	xref.crypt = handler
	return xref, nil
}

// XRef returns the cross-reference table set up by Parse
func (d *Document) XRef() (*XRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.xref == nil {
		return nil, ErrNotParsed
	}
	return d.xref, nil
}

// Trailer returns the merged trailer dictionary
func (d *Document) Trailer() (core.Dict, error) {
	xref, err := d.XRef()
	if err != nil {
		return nil, err
	}
	return xref.Trailer(), nil
}

// Catalog returns the document catalog, loading it on first use
func (d *Document) Catalog() (*Catalog, error) {
	d.mu.Lock()
	xref, cached := d.xref, d.catalog
	d.mu.Unlock()

	if xref == nil {
		return nil, ErrNotParsed
	}
	if cached != nil {
		return cached, nil
	}

	rec := newFaultRecorder(d.src)
	catalog, err := d.loadCatalog(rec, xref)
	if err = rec.result(err); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.xref != xref {
		// reparsed meanwhile; the catalog belongs to the old table
		return catalog, nil
	}
	if d.catalog == nil {
		d.catalog = catalog
	}
	return d.catalog, nil
}

func (d *Document) loadCatalog(r io.ReaderAt, xref *XRef) (*Catalog, error) {
	rootObj := xref.Trailer().Get("Root")
	if rootObj == nil {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}
	resolved, err := xref.resolve(r, rootObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Root: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Root type: %T", resolved)
	}
	if typ, _ := dict.GetName("Type"); typ != "Catalog" {
		d.log.Warn().Str("type", string(typ)).Msg("document catalog has unexpected /Type")
	}
	return newCatalog(d, xref, dict), nil
}

// NumPages returns the number of pages
func (d *Document) NumPages() (int, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return 0, err
	}
	return catalog.NumPages()
}

// Page returns the page at the zero-based index
func (d *Document) Page(index int) (*Page, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	return catalog.Page(index)
}

// Info returns the document information dictionary as decoded text. A
// document without one yields an empty map.
func (d *Document) Info() (map[string]string, error) {
	xref, err := d.XRef()
	if err != nil {
		return nil, err
	}

	rec := newFaultRecorder(d.src)
	info, err := d.readInfo(rec, xref)
	return info, rec.result(err)
}

func (d *Document) readInfo(r io.ReaderAt, xref *XRef) (map[string]string, error) {
	info := make(map[string]string)

	infoObj := xref.Trailer().Get("Info")
	if infoObj == nil {
		return info, nil
	}
	resolved, err := xref.resolve(r, infoObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Info: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		if d.opts.IgnoreErrors {
			return info, nil
		}
		return nil, fmt.Errorf("invalid /Info type: %T", resolved)
	}

	for _, key := range dict.Keys() {
		value, err := xref.resolve(r, dict.Get(key))
		if err != nil {
			if isFault(err) || !d.opts.IgnoreErrors {
				return nil, fmt.Errorf("failed to resolve /Info /%s: %w", key, err)
			}
			d.log.Warn().Err(err).Str("key", key).Msg("skipping unreadable info entry")
			continue
		}
		switch v := value.(type) {
		case core.String:
			info[key] = DecodeTextString(string(v))
		case core.Name:
			info[key] = string(v)
		case core.Int, core.Real, core.Bool:
			info[key] = v.String()
		}
	}
	return info, nil
}

// Fingerprint identifies the document: the first /ID string in hex, or a
// hash of the first kilobyte when the trailer has no /ID.
func (d *Document) Fingerprint() (string, error) {
	if xref, err := d.XRef(); err == nil {
		if ids, ok := xref.Trailer().GetArray("ID"); ok && len(ids) > 0 {
			if id, ok := ids[0].(core.String); ok && len(id) > 0 && strings.Trim(string(id), "\x00") != "" {
				return hex.EncodeToString([]byte(id)), nil
			}
		}
	}

	rec := newFaultRecorder(d.src)
	buf := make([]byte, min(d.length, headerWindow))
	_, err := rec.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", rec.result(fmt.Errorf("failed to read document prefix: %w", err))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(buf)), nil
}

// Cleanup drops parsed objects and the catalog. They are rebuilt from the
// raw bytes on demand.
func (d *Document) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.xref != nil {
		d.xref.purge()
	}
	d.catalog = nil
}
