package lifecycle

import (
	"unicode/utf8"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
)

// Status is the result reported to CloudFormation.
type Status string

// Outcome statuses.
const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// maxReasonLength bounds the Reason field; CloudFormation rejects larger
// response bodies.
const maxReasonLength = 1024

// Outcome is the response body sent to the callback URL.
type Outcome struct {
	Status             Status         `json:"Status"`
	Reason             string         `json:"Reason,omitempty"`
	PhysicalResourceID string         `json:"PhysicalResourceId"`
	StackID            string         `json:"StackId"`
	RequestID          string         `json:"RequestId"`
	LogicalResourceID  string         `json:"LogicalResourceId"`
	Data               map[string]any `json:"Data"`
}

func newOutcome(ev Event, physicalID string, status Status, reason string) Outcome {
	return Outcome{
		Status:             status,
		Reason:             truncate(reason, maxReasonLength),
		PhysicalResourceID: physicalID,
		StackID:            ev.StackID,
		RequestID:          ev.RequestID,
		LogicalResourceID:  ev.LogicalResourceID,
		Data:               map[string]any{},
	}
}

func successOutcome(ev Event, physicalID, logStream string, data map[string]any) Outcome {
	o := newOutcome(ev, physicalID, StatusSuccess, "See the details in CloudWatch Log Stream: "+logStream)
	for k, v := range data {
		o.Data[k] = v
	}
	return o
}

func failedOutcome(ev Event, physicalID string, code errors.ErrorCode, err error) Outcome {
	return newOutcome(ev, physicalID, StatusFailed, string(code)+": "+err.Error())
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
