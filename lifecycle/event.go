package lifecycle

import (
	"encoding/json"
)

// RequestType is the lifecycle transition CloudFormation is asking for.
type RequestType string

// Lifecycle transitions.
const (
	RequestCreate RequestType = "Create"
	RequestUpdate RequestType = "Update"
	RequestDelete RequestType = "Delete"
)

// Valid reports whether t is one of the three known transitions.
func (t RequestType) Valid() bool {
	switch t {
	case RequestCreate, RequestUpdate, RequestDelete:
		return true
	}
	return false
}

// Event is a custom-resource request as delivered to the function.
type Event struct {
	RequestType           RequestType     `json:"RequestType"`
	RequestID             string          `json:"RequestId"`
	ResponseURL           string          `json:"ResponseURL"`
	ResourceType          string          `json:"ResourceType"`
	PhysicalResourceID    string          `json:"PhysicalResourceId,omitempty"`
	LogicalResourceID     string          `json:"LogicalResourceId"`
	StackID               string          `json:"StackId"`
	ServiceToken          string          `json:"ServiceToken,omitempty"`
	ResourceProperties    json.RawMessage `json:"ResourceProperties,omitempty"`
	OldResourceProperties json.RawMessage `json:"OldResourceProperties,omitempty"`
}
