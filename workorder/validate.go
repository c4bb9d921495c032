package workorder

import (
	"encoding/json"

	"github.com/danintel/trusted-compute-framework/log"
)

// MandatoryParams must all be present in a request before it is signed.
var MandatoryParams = []string{"requesterNonce", "workOrderId", "workerId", "requesterId", "inData"}

// Validate checks that a WorkOrderSubmit payload carries every mandatory
// parameter, and that every inData item has non-empty data and an index.
// Each defect is logged; the whole payload is checked before returning.
func Validate(payload []byte) bool {
	var envelope struct {
		Params map[string]json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.Errorf("work order request is not valid JSON: %v", err)
		return false
	}
	if envelope.Params == nil {
		log.Errorf("work order request does not have the required params")
		return false
	}

	valid := true
	for _, name := range MandatoryParams {
		if _, ok := envelope.Params[name]; !ok {
			log.Errorf("work order request does not have the required parameter: %s", name)
			valid = false
		}
	}

	raw, ok := envelope.Params["inData"]
	if !ok {
		return false
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Errorf("work order inData is not a list of data items: %v", err)
		return false
	}
	if items == nil {
		log.Errorf("work order inData is null")
		return false
	}
	for i, item := range items {
		if !hasData(item["data"]) {
			log.Errorf("work order inData item %d does not have the required parameter: data", i)
			valid = false
		}
		if _, ok := item["index"]; !ok {
			log.Errorf("work order inData item %d does not have the required parameter: index", i)
			valid = false
		}
	}
	return valid
}

func hasData(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	// null decodes into the empty string
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s != ""
}
