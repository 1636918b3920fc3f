package testutil

import (
	"encoding/json"
)

// BusinessNumber is the owning account's display number used by the fixtures
const BusinessNumber = "918329997219"

// Contact is a counterparty entry of a webhook value
type Contact struct {
	WaID string
	Name string
}

// MessageRecord is one message of a webhook value. Timestamp is epoch
// seconds as a string; empty omits the field.
type MessageRecord struct {
	From      string
	ID        string
	Text      string
	Timestamp string
}

// StatusRecord is one status of a webhook value
type StatusRecord struct {
	ID          string
	Status      string
	Timestamp   string
	RecipientID string
}

// Envelope builds a webhook document with a single entry and change
func Envelope(contacts []Contact, messages []MessageRecord, statuses []StatusRecord) []byte {
	value := map[string]interface{}{
		"messaging_product": "whatsapp",
		"metadata": map[string]interface{}{
			"display_phone_number": BusinessNumber,
			"phone_number_id":      "629305560276479",
		},
	}
	if len(contacts) > 0 {
		var cs []map[string]interface{}
		for _, c := range contacts {
			cs = append(cs, map[string]interface{}{
				"wa_id":   c.WaID,
				"profile": map[string]interface{}{"name": c.Name},
			})
		}
		value["contacts"] = cs
	}
	if len(messages) > 0 {
		var ms []map[string]interface{}
		for _, m := range messages {
			rec := map[string]interface{}{
				"from": m.From,
				"id":   m.ID,
				"type": "text",
				"text": map[string]interface{}{"body": m.Text},
			}
			if m.Timestamp != "" {
				rec["timestamp"] = m.Timestamp
			}
			ms = append(ms, rec)
		}
		value["messages"] = ms
	}
	if len(statuses) > 0 {
		var ss []map[string]interface{}
		for _, s := range statuses {
			rec := map[string]interface{}{
				"id":           s.ID,
				"status":       s.Status,
				"recipient_id": s.RecipientID,
			}
			if s.Timestamp != "" {
				rec["timestamp"] = s.Timestamp
			}
			ss = append(ss, rec)
		}
		value["statuses"] = ss
	}

	doc := map[string]interface{}{
		"payload_type": "whatsapp_webhook",
		"metaData": map[string]interface{}{
			"entry": []interface{}{
				map[string]interface{}{
					"id": "30164062719905277",
					"changes": []interface{}{
						map[string]interface{}{"field": "messages", "value": value},
					},
				},
			},
		},
	}
	data, _ := json.Marshal(doc)
	return data
}

// InboundMessage builds a document carrying one message from a counterparty
func InboundMessage(from, name, id, text, timestamp string) []byte {
	return Envelope(
		[]Contact{{WaID: from, Name: name}},
		[]MessageRecord{{From: from, ID: id, Text: text, Timestamp: timestamp}},
		nil,
	)
}

// OutboundMessage builds a document carrying one message sent by the business to waID
func OutboundMessage(waID, name, id, text, timestamp string) []byte {
	return Envelope(
		[]Contact{{WaID: waID, Name: name}},
		[]MessageRecord{{From: BusinessNumber, ID: id, Text: text, Timestamp: timestamp}},
		nil,
	)
}

// StatusUpdate builds a document carrying one status without contacts
func StatusUpdate(id, status, recipientID, timestamp string) []byte {
	return Envelope(nil, nil, []StatusRecord{{ID: id, Status: status, RecipientID: recipientID, Timestamp: timestamp}})
}
