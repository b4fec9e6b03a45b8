package materialvault

import "context"

// ImportMaterials funnels already-parsed records through the same material
// upsert (and therefore the same defaulting rules) as approval. Rows are
// independent: one failing row never stops the rest.
//
// CSV and archive parsing are caller concerns; this layer only consumes
// field maps.
func (s *service) ImportMaterials(ctx context.Context, req ImportRequest) []ImportRecordResult {
	results := make([]ImportRecordResult, 0, len(req.Records))

	for i, rec := range req.Records {
		id, action, err := s.upsertMaterial(ctx, rec.Fields, rec.ReferenceURLs, rec.UseExamples, req.UpdateExisting)
		if err != nil {
			results = append(results, ImportRecordResult{
				Index:     i,
				OK:        false,
				ErrorCode: errorCode(err),
				Error:     err.Error(),
				Err:       err,
			})
			continue
		}
		results = append(results, ImportRecordResult{
			Index:      i,
			OK:         true,
			MaterialID: id,
			Action:     action,
		})
	}

	return results
}
