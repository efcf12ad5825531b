package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

const PolicyVersion = "2012-10-17"

// https://docs.aws.amazon.com/IAM/latest/UserGuide/reference_policies_elements.html
type Policy struct {
	Id        string               `json:"Id,omitempty"`
	Version   string               `json:"Version"`
	Statement *PolicyStatementList `json:"Statement"`
}

func NewPolicyFromJSON(data []byte) (*Policy, error) {
	var policy Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, err
	}

	if policy.Version == "" {
		return nil, fmt.Errorf("missing version in policy")
	}

	if policy.Statement == nil || len(*policy.Statement) == 0 {
		return nil, fmt.Errorf("empty statements in policy")
	}

	return &policy, nil
}

// Document converts the policy into the untyped form stored in templates.
func (p *Policy) Document() (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type PolicyStatementList []PolicyStatement

func (pol *PolicyStatementList) UnmarshalJSON(rawData []byte) error {
	var retSingle PolicyStatement
	var retSlice []PolicyStatement
	if err := json.Unmarshal(rawData, &retSingle); err == nil {
		*pol = append(*pol, retSingle)
		return nil
	} else if err := json.Unmarshal(rawData, &retSlice); err == nil {
		*pol = retSlice
		return nil
	}
	return fmt.Errorf("unmarshal error for PolicyStatementList type: %s", string(rawData))
}

type PolicyStatement struct {
	Sid       string      `json:"Sid,omitempty"`
	Effect    string      `json:"Effect"`
	Principal *Principal  `json:"Principal,omitempty"`
	Action    *DynaString `json:"Action,omitempty"`
	NotAction *DynaString `json:"NotAction,omitempty"`
	Resource  *DynaString `json:"Resource,omitempty"`
	Condition *Condition  `json:"Condition,omitempty"`
}

type Principal struct {
	AWS       *DynaString `json:"AWS,omitempty"`
	Service   *DynaString `json:"Service,omitempty"`
	Federated *DynaString `json:"Federated,omitempty"`
}

func (p *Principal) UnmarshalJSON(rawData []byte) error {
	if string(rawData) == `"*"` {
		star := DynaString{"*"}
		*p = Principal{AWS: &star}
		return nil
	}
	type tmpPrincipal Principal
	var retPrincipal tmpPrincipal
	if err := json.Unmarshal(rawData, &retPrincipal); err != nil {
		return fmt.Errorf("unmarshal error for Principal type: %s", string(rawData))
	}
	*p = Principal(retPrincipal)
	return nil
}

// Empty reports whether no principal of any kind is set.
func (p *Principal) Empty() bool {
	return p == nil || (p.AWS == nil && p.Service == nil && p.Federated == nil)
}

type Condition map[string]ConditionStatement

type ConditionStatement map[string]DynaString

// DynaString is a policy element that may be a single string or a list.
type DynaString []string

func (dyna *DynaString) UnmarshalJSON(rawData []byte) error {
	var retString string
	if err := json.Unmarshal(rawData, &retString); err == nil {
		*dyna = append(*dyna, retString)
		return nil
	}

	var retSlice []string
	if err := json.Unmarshal(rawData, &retSlice); err == nil {
		*dyna = retSlice
		return nil
	}

	// Bool conditions show up unquoted in hand-written policies
	var retBool bool
	if err := json.Unmarshal(rawData, &retBool); err == nil {
		*dyna = append(*dyna, strconv.FormatBool(retBool))
		return nil
	}

	return fmt.Errorf("unmarshal error for DynaString type: %s", string(rawData))
}

// MarshalJSON writes single values back as a plain string, as CloudFormation
// templates usually carry them.
func (dyna DynaString) MarshalJSON() ([]byte, error) {
	if len(dyna) == 1 {
		return json.Marshal(dyna[0])
	}
	return json.Marshal([]string(dyna))
}

// Add appends v unless it is already present.
func (dyna *DynaString) Add(v string) {
	if !slices.Contains(*dyna, v) {
		*dyna = append(*dyna, v)
	}
}

func NewDynaString(values []string) *DynaString {
	if values == nil {
		return nil
	}
	ds := DynaString(values)
	return &ds
}

// AssumeRolePolicy builds a trust policy allowing sts:AssumeRole for the
// given principal. External ids add a StringEquals condition.
func AssumeRolePolicy(principal *Principal, externalIDs []string) *Policy {
	stmt := PolicyStatement{
		Effect:    "Allow",
		Principal: principal,
		Action:    NewDynaString([]string{"sts:AssumeRole"}),
	}
	if len(externalIDs) > 0 {
		stmt.Condition = &Condition{
			"StringEquals": ConditionStatement{
				"sts:ExternalId": DynaString(externalIDs),
			},
		}
	}
	return &Policy{
		Version:   PolicyVersion,
		Statement: &PolicyStatementList{stmt},
	}
}
