package fec

import "errors"

// Cover is the second line of a filing: the summary record identifying the
// form being filed and the committee filing it.
type Cover struct {
	FormType         string
	FilerCommitteeID string
}

func coverFromRecord(rec *Record) (*Cover, error) {
	id, ok := rec.Get("filer_committee_id_number")
	if !ok || !id.Valid {
		return nil, errors.New("no filer_committee_id_number in cover line")
	}
	return &Cover{FormType: rec.FormCode, FilerCommitteeID: id.Text}, nil
}
