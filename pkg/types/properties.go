package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Text is a property that is usually a literal string but that legacy
// templates sometimes express with an intrinsic function.
type Text struct {
	Value string
	Raw   any
}

func (t *Text) UnmarshalJSON(rawData []byte) error {
	var s string
	if err := json.Unmarshal(rawData, &s); err == nil {
		t.Value = s
		t.Raw = s
		return nil
	}
	var raw any
	if err := json.Unmarshal(rawData, &raw); err != nil {
		return fmt.Errorf("unmarshal error for Text type: %w", err)
	}
	t.Raw = raw
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

func (t Text) String() string {
	return t.Value
}

// IsLiteral reports whether the value was a plain string.
func (t Text) IsLiteral() bool {
	_, ok := t.Raw.(string)
	return ok
}

// Literal returns the value when it is a plain, non-blank string.
func (t Text) Literal() (string, bool) {
	if !t.IsLiteral() || strings.TrimSpace(t.Value) == "" {
		return "", false
	}
	return t.Value, true
}

type Tag struct {
	Key   string `json:"Key"`
	Value Text   `json:"Value"`
}

// DecodeProperties reads a record's raw property bag into a typed view. The
// raw bag stays on the record and remains the source of truth.
func DecodeProperties[T any](r *Record) (T, error) {
	var out T
	if r == nil || r.ResourceMetadata.Properties == nil {
		return out, nil
	}
	data, err := json.Marshal(r.ResourceMetadata.Properties)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %s properties of %s: %w", r.ResourceType, r.LogicalResourceID, err)
	}
	return out, nil
}

type ManagedPolicyProperties struct {
	ManagedPolicyName Text `json:"ManagedPolicyName"`
	Path              Text `json:"Path"`
}

type RoleProperties struct {
	RoleName Text `json:"RoleName"`
	Path     Text `json:"Path"`
}

type GroupProperties struct {
	GroupName Text `json:"GroupName"`
}

type UserProperties struct {
	UserName Text `json:"UserName"`
}

type SecurityGroupProperties struct {
	GroupName        Text `json:"GroupName"`
	GroupDescription Text `json:"GroupDescription"`
	VpcID            any  `json:"VpcId"`
}

type VpcEndpointProperties struct {
	ServiceName     any  `json:"ServiceName"`
	VpcEndpointType Text `json:"VpcEndpointType"`
	VpcID           any  `json:"VpcId"`
}

type ResolverEndpointProperties struct {
	Name      Text `json:"Name"`
	Direction Text `json:"Direction"`
}

type TransitGatewayRouteProperties struct {
	TransitGatewayRouteTableID any  `json:"TransitGatewayRouteTableId"`
	DestinationCidrBlock       Text `json:"DestinationCidrBlock"`
	TransitGatewayAttachmentID any  `json:"TransitGatewayAttachmentId"`
	Blackhole                  any  `json:"Blackhole"`
}
