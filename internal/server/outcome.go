package server

import (
	"errors"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
)

// outcomeMap is the structpb-friendly form of an outcome, without the document.
func outcomeMap(o pipeline.Outcome) map[string]any {
	m := map[string]any{
		"file_name": o.FileName,
		"status":    string(o.Status),
	}
	if o.Result.Method != "" {
		m["method"] = o.Result.Method
		m["pages"] = o.Result.Pages
	}
	if len(o.Result.Warnings) > 0 {
		ws := make([]any, len(o.Result.Warnings))
		for i, w := range o.Result.Warnings {
			ws[i] = w
		}
		m["warnings"] = ws
	}
	if o.Err != nil {
		m["error"] = o.Err.Error()
	}
	if o.Document != nil && o.Document.ID() != 0 {
		m["id"] = o.Document.ID()
	}
	return m
}

func documentsOf(outs []pipeline.Outcome) []*entity.Document {
	var docs []*entity.Document
	for _, o := range outs {
		if o.Document != nil {
			docs = append(docs, o.Document)
		}
	}
	return docs
}

// uploadFailure returns the error to surface for a whole upload: a failed
// single file, or an archive that could not be opened. Per-entry archive
// failures are reported through the outcomes instead.
func uploadFailure(name string, outs []pipeline.Outcome) error {
	if len(outs) != 1 || outs[0].Err == nil {
		return nil
	}
	if constants.MapExtToFormat(constants.ExtOf(name)) != constants.ZIP || errors.Is(outs[0].Err, common.ErrInvalidArchive) {
		return outs[0].Err
	}
	return nil
}
