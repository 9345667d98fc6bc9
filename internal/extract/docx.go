package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
)

const docxMainPart = "word/document.xml"

// DOCXStrategy joins the text of the document body's paragraphs.
type DOCXStrategy struct {
	logger *slog.Logger
}

func NewDOCXStrategy(logger *slog.Logger) *DOCXStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOCXStrategy{logger: logger}
}

func (s *DOCXStrategy) Extract(_ context.Context, name string, data []byte) (Result, error) {
	start := time.Now()
	paras, err := docxParagraphs(data)
	if err != nil {
		return Result{Method: MethodDOCX}, common.InvalidFormat(fmt.Sprintf("cannot read docx %q", name), err)
	}
	kept := paras[:0]
	for _, p := range paras {
		if p != "" {
			kept = append(kept, p)
		}
	}
	res := Result{
		Text:     strings.Join(kept, "\n"),
		Pages:    1,
		Method:   MethodDOCX,
		Duration: time.Since(start),
	}
	s.logger.Debug("extract.docx.ok", "file_name", name, "paragraphs", len(paras), "kept", len(kept))
	return res, nil
}

// docxParagraphs returns the text of every body-level w:p, empty ones included.
func docxParagraphs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxMainPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("%s not found in package", docxMainPart)
	}
	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docxMainPart, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		path  []string // local names of open elements
		paras []string
		cur   strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", docxMainPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			if inRun(path) {
				switch t.Name.Local {
				case "tab":
					cur.WriteByte('\t')
				case "br", "cr":
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if isBodyParagraph(path) {
				paras = append(paras, cur.String())
				cur.Reset()
			}
			path = path[:len(path)-1]
		case xml.CharData:
			if inRun(path) && path[len(path)-1] == "t" {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}

func isBodyParagraph(path []string) bool {
	n := len(path)
	return n >= 2 && path[n-1] == "p" && path[n-2] == "body"
}

// inRun reports whether the innermost element is a direct child of a run that
// belongs to a body-level paragraph, directly or through a hyperlink.
func inRun(path []string) bool {
	n := len(path)
	if n < 4 || path[n-2] != "r" {
		return false
	}
	if path[n-3] == "p" && path[n-4] == "body" {
		return true
	}
	return n >= 5 && path[n-3] == "hyperlink" && path[n-4] == "p" && path[n-5] == "body"
}
