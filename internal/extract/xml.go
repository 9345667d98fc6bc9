package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/joseph-ayodele/docintake/internal/common"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// XMLStrategy emits the leading text of every element in document order.
type XMLStrategy struct {
	logger *slog.Logger
}

func NewXMLStrategy(logger *slog.Logger) *XMLStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &XMLStrategy{logger: logger}
}

func (s *XMLStrategy) Extract(_ context.Context, name string, data []byte) (Result, error) {
	start := time.Now()
	text, err := xmlLeadingText(data)
	if err != nil {
		return Result{Method: MethodXML}, common.InvalidFormat(fmt.Sprintf("malformed xml in %q", name), err)
	}
	res := Result{Text: text, Pages: 1, Method: MethodXML, Duration: time.Since(start)}
	s.logger.Debug("extract.xml.ok", "file_name", name, "chars", len(text))
	return res, nil
}

type xmlFrame struct {
	text    strings.Builder
	emitted bool
}

// xmlLeadingText walks elements depth-first pre-order and collects, for each
// element, the text before its first child element.
func xmlLeadingText(data []byte) (string, error) {
	dec := newXMLDecoder(data)

	var (
		stack   []*xmlFrame
		out     []string
		sawRoot bool
	)
	emit := func(f *xmlFrame) {
		if f.emitted {
			return
		}
		f.emitted = true
		if t := strings.TrimSpace(f.text.String()); t != "" {
			out = append(out, t)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && sawRoot {
				return "", fmt.Errorf("line %d: junk after document element", line(dec))
			}
			sawRoot = true
			if n := len(stack); n > 0 {
				emit(stack[n-1])
			}
			stack = append(stack, &xmlFrame{})
		case xml.EndElement:
			n := len(stack)
			emit(stack[n-1])
			stack = stack[:n-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return "", fmt.Errorf("line %d: text outside the document element", line(dec))
				}
				continue
			}
			if n := len(stack); !stack[n-1].emitted {
				stack[n-1].text.Write(t)
			}
		}
	}
	if !sawRoot {
		return "", errors.New("no root element")
	}
	return strings.Join(out, "\n"), nil
}

func line(dec *xml.Decoder) int {
	l, _ := dec.InputPos()
	return l
}

// newXMLDecoder honours a leading BOM by transcoding to UTF-8 up front; other
// declared encodings are transcoded through the charset reader.
func newXMLDecoder(data []byte) *xml.Decoder {
	var r io.Reader = bytes.NewReader(data)
	transcoded := false
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		transcoded = true
	}
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		if transcoded {
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}
	return dec
}
