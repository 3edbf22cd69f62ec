package platform

import "encoding/json"

// Notification is the change feed payload the platform pushes when call
// state changes. Only "created" items carrying a call id start a session;
// everything else is ignored.
type Notification struct {
	ODataType string             `json:"@odata.type,omitempty"`
	Value     []NotificationItem `json:"value"`
}

type NotificationItem struct {
	ChangeType string               `json:"changeType"`
	Resource   NotificationResource `json:"resource"`
}

type NotificationResource struct {
	Call *CallResource `json:"call"`
}

type CallResource struct {
	ID string `json:"id"`
}

// ParseNotification decodes a raw notification payload.
func ParseNotification(raw []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// CreatedCallIDs extracts the ids of newly created calls, in order.
func (n Notification) CreatedCallIDs() []string {
	var ids []string
	for _, item := range n.Value {
		if item.ChangeType != "created" {
			continue
		}
		if item.Resource.Call == nil || item.Resource.Call.ID == "" {
			continue
		}
		ids = append(ids, item.Resource.Call.ID)
	}
	return ids
}
