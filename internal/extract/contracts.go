package extract

import (
	"context"
	"time"
)

// Strategy turns the bytes of one file into plain text.
type Strategy interface {
	Extract(ctx context.Context, name string, data []byte) (Result, error)
}

// Method names recorded on a Result.
const (
	MethodImageOCR = "image-ocr"
	MethodPDFOCR   = "pdf-ocr"
	MethodPDFText  = "pdf-text"
	MethodXML      = "xml"
	MethodDOCX     = "docx"
)

// Result is the extracted text plus metadata that does not change the text contract.
type Result struct {
	Text     string
	Pages    int
	Method   string
	Duration time.Duration
	Warnings []string
}

// ArchiveEntry is one file yielded from a ZIP archive.
type ArchiveEntry struct {
	Name string
	Data []byte
}
