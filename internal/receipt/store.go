package receipt

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

// ErrDocument is returned when the rendered document cannot be decoded or
// written. The order and billing form are left as they were.
var ErrDocument = errors.New("receipt document could not be processed")

var (
	pdfMagic   = []byte("%PDF-")
	dataURLPDF = []byte("data:application/pdf;base64,")
	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// FileStore writes receipts under one directory per table.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save decodes payload and writes it atomically. It returns the file path.
func (s *FileStore) Save(table string, payload []byte) (string, error) {
	doc, err := decodeDocument(payload)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.dir, tableDir(table))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocument, err)
	}
	tmp, err := os.CreateTemp(dir, ".receipt-*.part")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocument, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrDocument, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocument, err)
	}

	path := filepath.Join(dir, "receipt-"+uuid.NewString()+".pdf")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocument, err)
	}
	return path, nil
}

// decodeDocument accepts a raw PDF, a base64 PDF, or a base64 data URL.
func decodeDocument(payload []byte) ([]byte, error) {
	p := bytes.TrimSpace(payload)
	if bytes.HasPrefix(p, pdfMagic) {
		return p, nil
	}
	p = bytes.TrimPrefix(p, dataURLPDF)
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDocument)
	}
	doc := make([]byte, base64.StdEncoding.DecodedLen(len(p)))
	n, err := base64.StdEncoding.Decode(doc, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}
	doc = doc[:n]
	if !bytes.HasPrefix(doc, pdfMagic) {
		return nil, fmt.Errorf("%w: payload is not a PDF", ErrDocument)
	}
	return doc, nil
}

func tableDir(table string) string {
	name := unsafeName.ReplaceAllString(table, "_")
	if name == "" || name == "_" {
		name = "table"
	}
	return name
}
