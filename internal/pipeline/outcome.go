package pipeline

import (
	"encoding/json"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
)

// Outcome is the per-file result of an upload or archive run.
type Outcome struct {
	FileName string
	Document *entity.Document
	Result   extract.Result
	Status   constants.Outcome
	Err      error
}

func newOutcome(name string, doc *entity.Document, res extract.Result, err error) Outcome {
	o := Outcome{FileName: name, Document: doc, Result: res, Err: err, Status: constants.OutcomeOK}
	switch {
	case err == nil:
	case common.IsWarning(err):
		o.Status = constants.OutcomeWarning
	default:
		o.Status = constants.OutcomeFailed
	}
	return o
}

type outcomeJSON struct {
	FileName string           `json:"file_name"`
	Status   string           `json:"status"`
	Method   string           `json:"method,omitempty"`
	Pages    int              `json:"pages,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
	Document *entity.Document `json:"document,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	v := outcomeJSON{
		FileName: o.FileName,
		Status:   string(o.Status),
		Method:   o.Result.Method,
		Pages:    o.Result.Pages,
		Warnings: o.Result.Warnings,
		Document: o.Document,
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
		v.Code = common.KindOf(o.Err)
	}
	return json.Marshal(v)
}
