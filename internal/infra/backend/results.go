package backend

import (
	"context"
	"encoding/json"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

const resultsPath = apiPrefix + "/results"

type Results struct {
	c      Caller
	fields ports.FieldExtractor
}

var _ ports.ResultService = (*Results)(nil)

func (r *Results) List(ctx context.Context, skip, limit int) ([]domain.ExtractionResult, error) {
	var raws []json.RawMessage
	if err := r.c.Get(ctx, resultsPath, page(skip, limit), &raws); err != nil {
		return nil, err
	}
	out := make([]domain.ExtractionResult, 0, len(raws))
	for _, raw := range raws {
		res, err := r.decode(resultsPath, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Results) Get(ctx context.Context, id int64) (domain.ExtractionResult, error) {
	return r.one(ctx, idPath(resultsPath, id))
}

func (r *Results) ByDocument(ctx context.Context, documentID int64) (domain.ExtractionResult, error) {
	return r.one(ctx, idPath(resultsPath+"/document", documentID))
}

// Validate records a reviewer decision. Only validated and rejected are accepted.
func (r *Results) Validate(ctx context.Context, id int64, status domain.ValidationStatus, notes string) (domain.ExtractionResult, error) {
	if _, err := domain.ParseValidationStatus(string(status)); err != nil {
		return domain.ExtractionResult{}, err
	}
	var raw json.RawMessage
	p := idPath(resultsPath, id, "validate")
	if err := r.c.Put(ctx, p, domain.ValidationRequest{Status: status, Notes: notes}, &raw); err != nil {
		return domain.ExtractionResult{}, err
	}
	return r.decode(p, raw)
}

func (r *Results) Update(ctx context.Context, id int64, patch domain.ResultPatch) (domain.ExtractionResult, error) {
	var raw json.RawMessage
	p := idPath(resultsPath, id)
	if err := r.c.Put(ctx, p, patch, &raw); err != nil {
		return domain.ExtractionResult{}, err
	}
	return r.decode(p, raw)
}

func (r *Results) one(ctx context.Context, p string) (domain.ExtractionResult, error) {
	var raw json.RawMessage
	if err := r.c.Get(ctx, p, nil, &raw); err != nil {
		return domain.ExtractionResult{}, err
	}
	return r.decode(p, raw)
}

func (r *Results) decode(p string, raw json.RawMessage) (domain.ExtractionResult, error) {
	var res domain.ExtractionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.ExtractionResult{}, parseErr("backend.results", p, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ExtractionResult{}, parseErr("backend.results", p, err)
	}
	res.Raw = doc
	if r.fields != nil {
		res.Fields = r.fields.Extract(doc)
	}
	return res, nil
}

func parseErr(op, path string, err error) error {
	return &domain.OpError{
		Op:   op,
		Kind: domain.KindParse,
		Path: path,
		Err:  err,
	}
}
