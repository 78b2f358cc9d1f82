package lifecycle

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/transfer"
)

// Default resource type names.
var (
	DefaultCopyResourceTypes  = []string{"Custom::CopyObjects", "Custom::S3Objects"}
	DefaultDrainResourceTypes = []string{"Custom::EmptyBucket", "Custom::EmptyS3Bucket"}
)

// Request is the resolved form of an event's resource properties. It is
// either a CopyRequest or a DrainRequest.
type Request interface {
	isRequest()
}

// CopyRequest asks for a set of objects to be copied, or removed again on
// Delete.
type CopyRequest struct {
	transfer.Request
}

// DrainRequest asks for a bucket to be emptied on Delete.
type DrainRequest struct {
	Bucket string
}

func (CopyRequest) isRequest()  {}
func (DrainRequest) isRequest() {}

// Routes maps resource type names to the operation that handles them.
type Routes struct {
	copyTypes  map[string]bool
	drainTypes map[string]bool
}

// NewRoutes builds routes from the given resource type names.
func NewRoutes(copyTypes, drainTypes []string) Routes {
	r := Routes{
		copyTypes:  make(map[string]bool, len(copyTypes)),
		drainTypes: make(map[string]bool, len(drainTypes)),
	}
	for _, t := range copyTypes {
		r.copyTypes[t] = true
	}
	for _, t := range drainTypes {
		r.drainTypes[t] = true
	}
	return r
}

// DefaultRoutes returns routes for the default resource type names.
func DefaultRoutes() Routes {
	return NewRoutes(DefaultCopyResourceTypes, DefaultDrainResourceTypes)
}

type requestKind int

const (
	kindUnknown requestKind = iota
	kindCopy
	kindDrain
)

// ParseRequest validates ev and resolves its resource properties into a
// Request. Resource types without a route are resolved by the shape of their
// properties: an Objects list means a copy and a lone BucketName means a
// drain. Every error matches errors.ErrInvalidInput.
func ParseRequest(ev Event, routes Routes) (Request, error) {
	if !ev.RequestType.Valid() {
		return nil, invalid("unsupported request type %q", ev.RequestType)
	}
	if len(ev.ResourceProperties) == 0 {
		return nil, invalid("ResourceProperties is required")
	}
	if !gjson.ValidBytes(ev.ResourceProperties) {
		return nil, invalid("ResourceProperties is not valid JSON")
	}

	props := gjson.ParseBytes(ev.ResourceProperties)
	if !props.IsObject() {
		return nil, invalid("ResourceProperties must be an object")
	}

	var (
		req Request
		err error
	)
	switch routes.kindOf(ev.ResourceType, props) {
	case kindCopy:
		req, err = parseCopy(props)
	case kindDrain:
		req, err = parseDrain(props)
	default:
		err = invalid("cannot determine the operation for resource type %q", ev.ResourceType)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r Routes) kindOf(resourceType string, props gjson.Result) requestKind {
	switch {
	case r.copyTypes[resourceType]:
		return kindCopy
	case r.drainTypes[resourceType]:
		return kindDrain
	case props.Get("Objects").Exists():
		return kindCopy
	case props.Get("BucketName").Exists():
		return kindDrain
	}
	return kindUnknown
}

func parseCopy(props gjson.Result) (CopyRequest, error) {
	var req CopyRequest
	var err error

	if req.SourceBucket, err = requiredString(props, "SourceBucket"); err != nil {
		return CopyRequest{}, err
	}
	if req.DestBucket, err = requiredString(props, "DestBucket"); err != nil {
		return CopyRequest{}, err
	}
	if req.Prefix, err = optionalString(props, "Prefix"); err != nil {
		return CopyRequest{}, err
	}

	objects := props.Get("Objects")
	if !objects.Exists() {
		return CopyRequest{}, invalid("Objects is required")
	}
	if !objects.IsArray() {
		return CopyRequest{}, invalid("Objects must be a list of object names")
	}
	for i, name := range objects.Array() {
		if name.Type != gjson.String {
			return CopyRequest{}, invalid("Objects[%d] must be a string", i)
		}
		if name.Str == "" {
			return CopyRequest{}, invalid("Objects[%d] cannot be empty", i)
		}
		req.Objects = append(req.Objects, name.Str)
	}

	return req, nil
}

func parseDrain(props gjson.Result) (DrainRequest, error) {
	bucket, err := requiredString(props, "BucketName")
	if err != nil {
		return DrainRequest{}, err
	}
	return DrainRequest{Bucket: bucket}, nil
}

func requiredString(props gjson.Result, name string) (string, error) {
	value := props.Get(name)
	if !value.Exists() {
		return "", invalid("%s is required", name)
	}
	if value.Type != gjson.String {
		return "", invalid("%s must be a string", name)
	}
	if value.Str == "" {
		return "", invalid("%s cannot be empty", name)
	}
	return value.Str, nil
}

func optionalString(props gjson.Result, name string) (string, error) {
	value := props.Get(name)
	if !value.Exists() || value.Type == gjson.Null {
		return "", nil
	}
	if value.Type != gjson.String {
		return "", invalid("%s must be a string", name)
	}
	return value.Str, nil
}

func invalid(format string, args ...any) error {
	return errors.NewError("parse request", errors.ErrInvalidInput).WithMessage(fmt.Sprintf(format, args...))
}
