package license

import "encoding/json"

// parseRecord decodes a license file's JSON body into a Record. Unknown
// fields are ignored per spec.md §6 ("extra fields are ignored").
func parseRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, malformed("license file is not valid JSON")
	}
	return rec, nil
}
