package types

// ResourceMappingEntry records that a legacy resource was adopted as the
// owner of a configured item.
type ResourceMappingEntry struct {
	AccountID       string           `json:"accountId"`
	Region          string           `json:"region"`
	StackName       string           `json:"stackName"`
	ResourceType    AseaResourceType `json:"resourceType"`
	CfnResourceType string           `json:"cfnResourceType"`
	Identifier      string           `json:"resourceIdentifier"`
	LogicalID       string           `json:"logicalResourceId"`
}

// Key identifies an entry for de-duplication.
func (e ResourceMappingEntry) Key() string {
	return e.AccountID + "|" + e.Region + "|" + string(e.ResourceType) + "|" + e.Identifier
}

// ParameterRequest asks for an SSM parameter node to be emitted into a
// stack scope. Value is a template value, usually a Ref or GetAtt.
type ParameterRequest struct {
	LogicalID string
	Name      string
	Value     any
}

// DeletionFlag records that a legacy resource should no longer be present.
type DeletionFlag struct {
	StackKey   string `json:"stackKey"`
	Type       string `json:"resourceType"`
	Identifier string `json:"resourceIdentifier"`
	LogicalID  string `json:"logicalResourceId"`
}
